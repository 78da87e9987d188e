// Package gateway adapts the catalog API to the resolver and batch driver:
// it converts wire types into model types once, wraps transport calls in
// retry and circuit breaking, and caches episode listings.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/autolink/internal/model"
	"github.com/sells-group/autolink/internal/resilience"
	"github.com/sells-group/autolink/pkg/catalog"
)

// EpisodeCache stores episode listings by candidate id. A nil slice with a
// nil error is a miss.
type EpisodeCache interface {
	GetCachedEpisodes(ctx context.Context, candidateID string) ([]model.Episode, error)
	SetCachedEpisodes(ctx context.Context, candidateID string, episodes []model.Episode, ttl time.Duration) error
}

// Gateway is the typed boundary over a catalog.Client.
type Gateway struct {
	client   catalog.Client
	cache    EpisodeCache
	cacheTTL time.Duration
	retry    resilience.RetryConfig
	breakers *resilience.Breakers
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithEpisodeCache caches episode listings for ttl. A non-positive ttl
// disables caching.
func WithEpisodeCache(c EpisodeCache, ttl time.Duration) Option {
	return func(g *Gateway) {
		if c != nil && ttl > 0 {
			g.cache = c
			g.cacheTTL = ttl
		}
	}
}

// WithRetry sets the retry policy for transient transport failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(g *Gateway) { g.retry = cfg }
}

// WithBreakers sets the per-operation circuit breakers.
func WithBreakers(b *resilience.Breakers) Option {
	return func(g *Gateway) {
		if b != nil {
			g.breakers = b
		}
	}
}

// New creates a Gateway over client.
func New(client catalog.Client, opts ...Option) *Gateway {
	g := &Gateway{
		client:   client,
		retry:    resilience.DefaultRetryConfig(),
		breakers: resilience.NewBreakers(resilience.DefaultCircuitBreakerConfig()),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// call runs fn with retry around the operation's circuit breaker. A call
// rejected by an open circuit is reported as a network failure.
func call[T any](ctx context.Context, g *Gateway, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg := g.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger(op)
	}
	cb := g.breakers.Get(op)

	val, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (T, error) {
		return resilience.ExecuteVal(ctx, cb, fn)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		err = resilience.NewTransportError(resilience.KindNetwork, 0, err)
	}
	return val, err
}

// Search runs a candidate search. Result order is preserved.
func (g *Gateway) Search(ctx context.Context, query string) ([]model.CandidateEntry, error) {
	hits, err := call(ctx, g, "search", func(ctx context.Context) ([]catalog.TheTVDBAnime, error) {
		return g.client.SearchTheTVDB(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.CandidateEntry, 0, len(hits))
	for _, h := range hits {
		out = append(out, toCandidate(h))
	}
	return out, nil
}

// Episodes lists a candidate's episodes, from cache when fresh.
func (g *Gateway) Episodes(ctx context.Context, candidateID string) ([]model.Episode, error) {
	log := zap.L().With(zap.String("candidate_id", candidateID))

	if g.cache != nil {
		cached, err := g.cache.GetCachedEpisodes(ctx, candidateID)
		if err != nil {
			log.Warn("gateway: episode cache read failed", zap.Error(err))
		} else if cached != nil {
			log.Debug("gateway: episode cache hit", zap.Int("episodes", len(cached)))
			return cached, nil
		}
	}

	raw, err := call(ctx, g, "episodes", func(ctx context.Context) ([]catalog.TheTVDBEpisode, error) {
		return g.client.EpisodesFromTheTVDB(ctx, candidateID)
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Episode, 0, len(raw))
	for _, e := range raw {
		out = append(out, toEpisode(e))
	}

	if g.cache != nil {
		if err := g.cache.SetCachedEpisodes(ctx, candidateID, out, g.cacheTTL); err != nil {
			log.Warn("gateway: episode cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

// SourceLookup fetches one source record by id.
func (g *Gateway) SourceLookup(ctx context.Context, id string) (model.SourceRecord, error) {
	a, err := call(ctx, g, "anime", func(ctx context.Context) (*catalog.Anime, error) {
		return g.client.Anime(ctx, id)
	})
	if err != nil {
		return model.SourceRecord{}, eris.Wrapf(err, "gateway: lookup %s", id)
	}
	return toSource(*a), nil
}

// SourcesBySeason lists the source records airing in season.
func (g *Gateway) SourcesBySeason(ctx context.Context, season model.SeasonKey) ([]model.SourceRecord, error) {
	list, err := call(ctx, g, "anime_by_season", func(ctx context.Context) ([]catalog.Anime, error) {
		return g.client.AnimeBySeason(ctx, string(season))
	})
	if err != nil {
		return nil, eris.Wrapf(err, "gateway: sources for %s", season)
	}

	out := make([]model.SourceRecord, 0, len(list))
	for _, a := range list {
		out = append(out, toSource(a))
	}
	return out, nil
}

// AlreadyLinked returns a snapshot of saved links keyed by source id. When a
// source has several links the first one listed wins.
func (g *Gateway) AlreadyLinked(ctx context.Context) (map[string]model.Link, error) {
	links, err := call(ctx, g, "saved_links", func(ctx context.Context) ([]catalog.SavedLink, error) {
		return g.client.SavedLinks(ctx)
	})
	if err != nil {
		return nil, eris.Wrap(err, "gateway: saved links")
	}

	out := make(map[string]model.Link, len(links))
	for _, l := range links {
		if _, ok := out[l.AnimeID]; ok || l.AnimeID == "" {
			continue
		}
		out[l.AnimeID] = toLink(l)
	}
	return out, nil
}

// SaveLink persists a link and returns it with its assigned id. Saves are
// never retried so a slow success cannot be written twice.
func (g *Gateway) SaveLink(ctx context.Context, link model.Link) (model.Link, error) {
	if link.AnimeID == "" || link.TheTVDBID == "" {
		return model.Link{}, eris.New("gateway: save link: anime id and thetvdb id are required")
	}
	if link.Season < 0 {
		return model.Link{}, eris.Errorf("gateway: save link: negative season %d", link.Season)
	}

	saved, err := g.client.SaveLink(ctx, catalog.SaveLinkInput{
		AnimeID:   link.AnimeID,
		TheTVDBID: link.TheTVDBID,
		Season:    link.Season,
		Name:      link.Name,
	})
	if err != nil {
		return model.Link{}, eris.Wrapf(err, "gateway: save link %s", link.AnimeID)
	}
	if saved == nil {
		return model.Link{}, eris.Errorf("gateway: save link %s: empty response", link.AnimeID)
	}

	out := toLink(*saved)
	if out.Name == "" {
		out.Name = link.Name
	}
	zap.L().Info("gateway: link saved",
		zap.String("link_id", out.ID),
		zap.String("anime_id", out.AnimeID),
		zap.String("thetvdb_id", out.TheTVDBID),
		zap.Int("season", out.Season),
	)
	return out, nil
}

// SyncLink pushes a saved link downstream.
func (g *Gateway) SyncLink(ctx context.Context, linkID string) (bool, error) {
	ok, err := call(ctx, g, "sync_link", func(ctx context.Context) (bool, error) {
		return g.client.SyncLink(ctx, linkID)
	})
	if err != nil {
		return false, eris.Wrapf(err, "gateway: sync link %s", linkID)
	}
	if !ok {
		return false, eris.Errorf("gateway: sync link %s: not acknowledged", linkID)
	}
	return true, nil
}
