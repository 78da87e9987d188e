// Package store persists batch run history, item states, and the episode
// listing cache.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/autolink/internal/config"
	"github.com/sells-group/autolink/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Season model.SeasonKey `json:"season,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for batch reconciliation.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, season model.SeasonKey, total int) (*model.Run, error)
	UpdateRunProgress(ctx context.Context, runID string, snap model.ProgressSnapshot) error
	FinishRun(ctx context.Context, runID string, status model.RunStatus) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Items
	UpsertItem(ctx context.Context, runID string, item model.BatchItemState) error
	ListItems(ctx context.Context, runID string, status model.ItemStatus) ([]model.BatchItemState, error)

	// Episode cache
	GetCachedEpisodes(ctx context.Context, candidateID string) ([]model.Episode, error)
	SetCachedEpisodes(ctx context.Context, candidateID string, episodes []model.Episode, ttl time.Duration) error
	DeleteExpiredEpisodes(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates and migrates the store selected by cfg. The "none" driver
// returns a nil Store and no error.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "none":
		return nil, nil
	case "sqlite":
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

const defaultListLimit = 100
