package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/autolink/internal/model"
	"github.com/sells-group/autolink/pkg/catalog"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Anime(ctx context.Context, id string) (*catalog.Anime, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*catalog.Anime)
	return a, args.Error(1)
}

func (m *mockClient) AnimeBySeason(ctx context.Context, season string) ([]catalog.Anime, error) {
	args := m.Called(ctx, season)
	list, _ := args.Get(0).([]catalog.Anime)
	return list, args.Error(1)
}

func (m *mockClient) SearchTheTVDB(ctx context.Context, query string) ([]catalog.TheTVDBAnime, error) {
	args := m.Called(ctx, query)
	hits, _ := args.Get(0).([]catalog.TheTVDBAnime)
	return hits, args.Error(1)
}

func (m *mockClient) EpisodesFromTheTVDB(ctx context.Context, thetvdbID string) ([]catalog.TheTVDBEpisode, error) {
	args := m.Called(ctx, thetvdbID)
	eps, _ := args.Get(0).([]catalog.TheTVDBEpisode)
	return eps, args.Error(1)
}

func (m *mockClient) SaveLink(ctx context.Context, in catalog.SaveLinkInput) (*catalog.SavedLink, error) {
	args := m.Called(ctx, in)
	l, _ := args.Get(0).(*catalog.SavedLink)
	return l, args.Error(1)
}

func (m *mockClient) SavedLinks(ctx context.Context) ([]catalog.SavedLink, error) {
	args := m.Called(ctx)
	links, _ := args.Get(0).([]catalog.SavedLink)
	return links, args.Error(1)
}

func (m *mockClient) SyncLink(ctx context.Context, linkID string) (bool, error) {
	args := m.Called(ctx, linkID)
	return args.Bool(0), args.Error(1)
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]model.Episode
	getErr  error
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]model.Episode)}
}

func (c *memCache) GetCachedEpisodes(_ context.Context, id string) ([]model.Episode, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.entries[id], nil
}

func (c *memCache) SetCachedEpisodes(_ context.Context, id string, eps []model.Episode, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.entries[id] = eps
	return nil
}

func strPtr(s string) *string { return &s }
