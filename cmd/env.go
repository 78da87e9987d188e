package main

import (
	"context"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/sells-group/autolink/internal/events"
	"github.com/sells-group/autolink/internal/gateway"
	"github.com/sells-group/autolink/internal/model"
	"github.com/sells-group/autolink/internal/resilience"
	"github.com/sells-group/autolink/internal/resolve"
	"github.com/sells-group/autolink/internal/store"
	"github.com/sells-group/autolink/pkg/catalog"
)

// linkCatalog is everything the commands need from the catalog boundary.
type linkCatalog interface {
	resolve.Catalog
	SourceLookup(ctx context.Context, id string) (model.SourceRecord, error)
	SourcesBySeason(ctx context.Context, season model.SeasonKey) ([]model.SourceRecord, error)
	AlreadyLinked(ctx context.Context) (map[string]model.Link, error)
	SaveLink(ctx context.Context, link model.Link) (model.Link, error)
	SyncLink(ctx context.Context, linkID string) (bool, error)
}

var _ linkCatalog = (*gateway.Gateway)(nil)

// appEnv holds the initialized dependencies shared by commands.
type appEnv struct {
	Catalog linkCatalog
	Store   store.Store // nil when store.driver is none
	Events  *events.Publisher
	nc      *nats.Conn
}

// Close releases the store and NATS connection.
func (e *appEnv) Close() {
	if e.nc != nil {
		if err := e.nc.Drain(); err != nil {
			zap.L().Warn("nats drain failed", zap.Error(err))
		}
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("store close failed", zap.Error(err))
		}
	}
}

// initEnv validates config for mode and wires the catalog client, store,
// and event publisher.
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	env := &appEnv{}

	if mode != "link" {
		st, err := store.Open(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		env.Store = st
	}

	client := catalog.NewClient(cfg.Catalog.Token,
		catalog.WithBaseURL(cfg.Catalog.GraphQLURL),
		catalog.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Catalog.TimeoutSecs) * time.Second}),
		catalog.WithRateLimit(cfg.Catalog.RatePerSec, cfg.Catalog.Burst),
	)

	opts := []gateway.Option{
		gateway.WithRetry(resilience.FromRetryConfig(cfg.Catalog.Retry)),
		gateway.WithBreakers(resilience.NewBreakers(resilience.FromCircuitConfig(cfg.Catalog.Circuit))),
	}
	if env.Store != nil {
		opts = append(opts, gateway.WithEpisodeCache(env.Store, time.Duration(cfg.Cache.EpisodeTTLHours)*time.Hour))
	}
	env.Catalog = gateway.New(client, opts...)

	if cfg.Events.NATSURL != "" {
		nc, err := events.Connect(events.Options{URL: cfg.Events.NATSURL})
		if err != nil {
			env.Close()
			return nil, err
		}
		env.nc = nc
		env.Events = events.NewPublisher(nc, cfg.Events.SubjectPrefix)
	}

	return env, nil
}
