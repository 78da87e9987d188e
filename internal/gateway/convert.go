package gateway

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/autolink/internal/model"
	"github.com/sells-group/autolink/pkg/catalog"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// toSource converts a catalog record. An unparsable start date is treated as
// missing.
func toSource(a catalog.Anime) model.SourceRecord {
	src := model.SourceRecord{
		ID:            a.ID,
		TitleEnglish:  deref(a.TitleEn),
		TitleRomaji:   deref(a.TitleRomaji),
		TitleJapanese: deref(a.TitleJp),
		ImageURL:      deref(a.ImageURL),
	}
	if raw := deref(a.StartDate); raw != "" {
		if t, ok := model.ParseDate(raw); ok {
			src.StartDate = t
		} else {
			zap.L().Debug("gateway: unparsable start date",
				zap.String("anime_id", a.ID),
				zap.String("start_date", raw),
			)
		}
	}
	return src
}

func toCandidate(c catalog.TheTVDBAnime) model.CandidateEntry {
	entry := model.CandidateEntry{
		ID:    strings.TrimSpace(c.ID),
		Title: c.Title,
		Image: deref(c.Image),
	}
	if y, err := strconv.Atoi(deref(c.Year)); err == nil {
		entry.Year = y
	}
	for _, t := range c.Translations {
		if t == nil || deref(t.Key) == "" || deref(t.Value) == "" {
			continue
		}
		entry.Translations = append(entry.Translations, model.Translation{Key: deref(t.Key), Value: deref(t.Value)})
	}
	return entry
}

func toEpisode(e catalog.TheTVDBEpisode) model.Episode {
	return model.Episode{
		SeasonNumber:  e.SeasonNumber,
		EpisodeNumber: e.EpisodeNumber,
		Title:         e.Title,
		AirDate:       deref(e.AirDate),
	}
}

func toLink(l catalog.SavedLink) model.Link {
	return model.Link{
		ID:        l.ID,
		AnimeID:   l.AnimeID,
		TheTVDBID: l.TheTVDBID,
		Season:    l.Season,
		Name:      deref(l.Name),
	}
}
