package reconcile

import (
	"errors"
	"fmt"

	"github.com/sells-group/autolink/internal/model"
	"github.com/sells-group/autolink/internal/resilience"
	"github.com/sells-group/autolink/internal/resolve"
)

const (
	msgNoTitle     = "Failed: No title available for search"
	msgNoStartDate = "Failed: No start date available for date matching"
	msgSaved       = "Link saved successfully!"
	msgSynced      = "Synced successfully!"
)

func alreadyLinkedMessage(l model.Link) string {
	return fmt.Sprintf("Already linked to TVDB ID: %s (Season %d)", l.TheTVDBID, l.Season)
}

func matchedMessage(m *model.MatchResult) string {
	return fmt.Sprintf("Matched: %s - Season %d via %s (searched: %q)",
		m.Candidate.DisplayTitle(), m.Season, m.Label, m.Query)
}

func searchMessage(v resolve.Variant) string {
	if v.Cleaned() {
		return fmt.Sprintf("Search query: %q (cleaned from %q)", v.Query, v.Title)
	}
	return fmt.Sprintf("Search query: %q", v.Query)
}

func noMatchMessage(src model.SourceRecord, out resolve.Outcome) string {
	switch out.Reason {
	case resolve.ReasonNoTitle:
		return msgNoTitle
	case resolve.ReasonMissingStartDate:
		return msgNoStartDate
	}
	return fmt.Sprintf("Failed: No TVDB match found. %s. Expected air date: %s",
		searchMessage(out.Last), model.FormatDate(src.StartDate))
}

// errorMessage describes a transport failure by kind, then the query that
// was in flight and the date we were looking for.
func errorMessage(src model.SourceRecord, err error) string {
	var msg string
	switch resilience.Classify(err) {
	case resilience.KindNetwork:
		msg = "Failed: Network error - unable to connect to TVDB API"
	case resilience.KindTimeout:
		msg = "Failed: Request timeout - TVDB API took too long to respond"
	case resilience.KindNotFound:
		msg = "Failed: Anime not found in database"
	case resilience.KindAuth:
		msg = "Failed: API authentication error"
	default:
		msg = "Error: " + err.Error()
	}

	var qe *resolve.QueryError
	if errors.As(err, &qe) {
		msg += ". " + searchMessage(qe.Variant)
	}
	return fmt.Sprintf("%s. Expected air date: %s", msg, model.FormatDate(src.StartDate))
}

func summarize(m *model.MatchResult) *model.CandidateSummary {
	return &model.CandidateSummary{
		ID:     m.CandidateID,
		Title:  m.Candidate.DisplayTitle(),
		Image:  m.Candidate.Image,
		Season: m.Season,
		Label:  m.Label,
		Query:  m.Query,
	}
}
