package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/autolink/internal/model"
	"github.com/sells-group/autolink/internal/resilience"
	"github.com/sells-group/autolink/internal/store"
)

// fakeCatalog is an in-memory linkCatalog. Every search returns candidates;
// episodes and sources are looked up by id.
type fakeCatalog struct {
	season     []model.SourceRecord
	sources    map[string]model.SourceRecord
	candidates []model.CandidateEntry
	episodes   map[string][]model.Episode
	links      map[string]model.Link

	searchErr error
	saved     []model.Link
	synced    []string
	searches  int
}

func (f *fakeCatalog) Search(_ context.Context, _ string) ([]model.CandidateEntry, error) {
	f.searches++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.candidates, nil
}

func (f *fakeCatalog) Episodes(_ context.Context, id string) ([]model.Episode, error) {
	return f.episodes[id], nil
}

func (f *fakeCatalog) SourceLookup(_ context.Context, id string) (model.SourceRecord, error) {
	src, ok := f.sources[id]
	if !ok {
		return model.SourceRecord{}, resilience.NewTransportError(resilience.KindNotFound, 0, eris.Errorf("anime %s not found", id))
	}
	return src, nil
}

func (f *fakeCatalog) SourcesBySeason(_ context.Context, _ model.SeasonKey) ([]model.SourceRecord, error) {
	return f.season, nil
}

func (f *fakeCatalog) AlreadyLinked(_ context.Context) (map[string]model.Link, error) {
	out := make(map[string]model.Link, len(f.links))
	for k, v := range f.links {
		out[k] = v
	}
	return out, nil
}

func (f *fakeCatalog) SaveLink(_ context.Context, link model.Link) (model.Link, error) {
	link.ID = "link-" + link.AnimeID
	f.saved = append(f.saved, link)
	return link, nil
}

func (f *fakeCatalog) SyncLink(_ context.Context, linkID string) (bool, error) {
	f.synced = append(f.synced, linkID)
	return true, nil
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newFrierenCatalog returns a catalog where "1" matches season 1 of the
// candidate, "2" has no start date, and "3" is already linked.
func newFrierenCatalog() *fakeCatalog {
	frieren := model.SourceRecord{ID: "1", TitleEnglish: "Frieren", StartDate: day(2023, time.September, 29)}
	undated := model.SourceRecord{ID: "2", TitleEnglish: "Undated Show"}
	linked := model.SourceRecord{ID: "3", TitleEnglish: "Linked Show", StartDate: day(2024, time.January, 5)}

	return &fakeCatalog{
		season: []model.SourceRecord{frieren, undated, linked},
		sources: map[string]model.SourceRecord{
			"1": frieren,
			"2": undated,
			"3": linked,
		},
		candidates: []model.CandidateEntry{
			{ID: "424536", Title: "Sousou no Frieren", Translations: []model.Translation{{Key: "eng", Value: "Frieren: Beyond Journey's End"}}},
		},
		episodes: map[string][]model.Episode{
			"424536": {
				{SeasonNumber: 1, EpisodeNumber: 1, AirDate: "2023-09-29"},
				{SeasonNumber: 1, EpisodeNumber: 2, AirDate: "2023-10-06"},
			},
		},
		links: map[string]model.Link{
			"3": {ID: "link-3", AnimeID: "3", TheTVDBID: "999", Season: 1, Name: "Linked Show"},
		},
	}
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "autolink.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	return st
}
