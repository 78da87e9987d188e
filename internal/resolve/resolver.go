// Package resolve finds the episode-guide series and season that correspond
// to an internal anime record.
package resolve

import (
	"context"
	"fmt"

	"github.com/sells-group/autolink/internal/model"
	"go.uber.org/zap"
)

// Catalog is the episode-guide surface the resolver searches.
type Catalog interface {
	Search(ctx context.Context, query string) ([]model.CandidateEntry, error)
	Episodes(ctx context.Context, candidateID string) ([]model.Episode, error)
}

// Reason explains why a resolution produced no match.
type Reason string

const (
	ReasonNoTitle          Reason = "no_title_available"
	ReasonMissingStartDate Reason = "missing_start_date"
	ReasonNoSeasonMatch    Reason = "no_season_match"
)

// Outcome is the result of one resolution. Exactly one of Match and Reason
// is set.
type Outcome struct {
	Match  *model.MatchResult
	Reason Reason

	// Last is the most recent variant searched; zero if none was.
	Last     Variant
	Searches int
	Fetches  int
}

// Matched reports whether a candidate season was confirmed.
func (o Outcome) Matched() bool {
	return o.Match != nil
}

// Stage names the external call that failed.
type Stage string

const (
	StageSearch   Stage = "search"
	StageEpisodes Stage = "episodes"
)

// QueryError is a catalog failure during resolution, annotated with the
// variant being searched.
type QueryError struct {
	Stage       Stage
	Variant     Variant
	CandidateID string
	Err         error
}

func (e *QueryError) Error() string {
	if e.Stage == StageEpisodes {
		return fmt.Sprintf("resolve: episodes for %s (query %q): %v", e.CandidateID, e.Variant.Query, e.Err)
	}
	return fmt.Sprintf("resolve: search %q: %v", e.Variant.Query, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Resolver matches source records against the catalog.
type Resolver struct {
	catalog Catalog
}

// NewResolver creates a resolver backed by catalog.
func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve searches the catalog with each title variant of src in priority
// order and confirms a candidate when one of its seasons premiered on the
// day src started. The first confirmed season wins and no further catalog
// calls are made. Records without a title or start date fail fast without
// touching the catalog. Catalog failures are returned as *QueryError and are
// never retried here.
func (r *Resolver) Resolve(ctx context.Context, src model.SourceRecord) (Outcome, error) {
	var out Outcome
	if !src.HasTitle() {
		out.Reason = ReasonNoTitle
		return out, nil
	}
	if !src.HasStartDate() {
		out.Reason = ReasonMissingStartDate
		return out, nil
	}

	log := zap.L().With(zap.String("source_id", src.ID))

	for _, v := range Variants(src) {
		out.Last = v
		out.Searches++
		log.Debug("resolve: searching",
			zap.String("label", v.Label),
			zap.String("query", v.Query),
		)

		candidates, err := r.catalog.Search(ctx, v.Query)
		if err != nil {
			return out, &QueryError{Stage: StageSearch, Variant: v, Err: err}
		}
		if len(candidates) == 0 {
			log.Debug("resolve: no search results", zap.String("query", v.Query))
			continue
		}

		for _, c := range candidates {
			if c.ID == "" {
				continue
			}
			out.Fetches++
			episodes, err := r.catalog.Episodes(ctx, c.ID)
			if err != nil {
				return out, &QueryError{Stage: StageEpisodes, Variant: v, CandidateID: c.ID, Err: err}
			}

			intervals, malformed := SeasonIntervals(episodes)
			if malformed > 0 {
				log.Debug("resolve: dropped malformed air dates",
					zap.String("candidate_id", c.ID),
					zap.Int("count", malformed),
				)
			}
			for _, iv := range intervals {
				if !model.SameDay(iv.Start, src.StartDate) {
					continue
				}
				out.Match = &model.MatchResult{
					CandidateID: c.ID,
					Candidate:   c,
					Season:      iv.Season,
					Label:       v.Label,
					Query:       v.Query,
					Title:       v.Title,
				}
				log.Info("resolve: matched",
					zap.String("candidate_id", c.ID),
					zap.Int("season", iv.Season),
					zap.String("label", v.Label),
				)
				return out, nil
			}
		}
	}

	out.Reason = ReasonNoSeasonMatch
	return out, nil
}
