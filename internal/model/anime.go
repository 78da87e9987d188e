package model

import (
	"strings"
	"time"
)

// SourceRecord is an entry in the internal anime catalog that we try to link.
// StartDate is the zero time when the catalog has no start date.
type SourceRecord struct {
	ID            string    `json:"id"`
	TitleEnglish  string    `json:"title_english,omitempty"`
	TitleRomaji   string    `json:"title_romaji,omitempty"`
	TitleJapanese string    `json:"title_japanese,omitempty"`
	StartDate     time.Time `json:"start_date,omitempty"`
	ImageURL      string    `json:"image_url,omitempty"`
}

// HasTitle reports whether any title field is set.
func (s SourceRecord) HasTitle() bool {
	return s.TitleEnglish != "" || s.TitleRomaji != "" || s.TitleJapanese != ""
}

// HasStartDate reports whether the record carries a start date.
func (s SourceRecord) HasStartDate() bool {
	return !s.StartDate.IsZero()
}

// DisplayTitle returns the best human-readable title, English first.
func (s SourceRecord) DisplayTitle() string {
	switch {
	case s.TitleEnglish != "":
		return s.TitleEnglish
	case s.TitleJapanese != "":
		return s.TitleJapanese
	case s.TitleRomaji != "":
		return s.TitleRomaji
	default:
		return "Unknown"
	}
}

// Translation is a (language key, value) pair attached to a candidate.
type Translation struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CandidateEntry is a series returned by the episode-guide search.
type CandidateEntry struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Translations []Translation `json:"translations,omitempty"`
	Image        string        `json:"image,omitempty"`
	Year         int           `json:"year,omitempty"`
}

// DisplayTitle prefers the English translation ("eng" or "en") over the
// primary title.
func (c CandidateEntry) DisplayTitle() string {
	for _, t := range c.Translations {
		key := strings.ToLower(t.Key)
		if (key == "eng" || key == "en") && t.Value != "" {
			return t.Value
		}
	}
	return c.Title
}

// Episode is one episode of a candidate series. AirDate is kept as the raw
// text delivered by the catalog; it may be empty or malformed.
type Episode struct {
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number,omitempty"`
	Title         string `json:"title,omitempty"`
	AirDate       string `json:"air_date,omitempty"`
}

// SeasonInterval is the [earliest, latest] air-date span of one season.
type SeasonInterval struct {
	Season int       `json:"season"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
}

// MatchResult is the confirmed candidate and season for a source record.
type MatchResult struct {
	CandidateID string         `json:"candidate_id"`
	Candidate   CandidateEntry `json:"candidate"`
	Season      int            `json:"season"`
	Label       string         `json:"label"`
	Query       string         `json:"query"`
	Title       string         `json:"title"` // source title the variant came from
}

// Link is a persisted internal-id → external-id mapping.
type Link struct {
	ID        string `json:"id"`
	AnimeID   string `json:"anime_id"`
	TheTVDBID string `json:"thetvdb_id"`
	Season    int    `json:"season"`
	Name      string `json:"name,omitempty"`
}
