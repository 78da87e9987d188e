package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/autolink/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it as well.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	season        TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'running',
	total         INTEGER NOT NULL DEFAULT 0,
	processed     INTEGER NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 0,
	fail_count    INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_items (
	seq        BIGSERIAL PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	source_id  TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	match_json JSONB,
	message    TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE (run_id, source_id)
);

CREATE TABLE IF NOT EXISTS episode_cache (
	candidate_id TEXT PRIMARY KEY,
	episodes     JSONB NOT NULL,
	cached_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_season ON runs(season);
CREATE INDEX IF NOT EXISTS idx_run_items_run_status ON run_items(run_id, status);
CREATE INDEX IF NOT EXISTS idx_episode_cache_expires_at ON episode_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, season model.SeasonKey, total int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, season, status, total, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, string(season), string(model.RunStatusRunning), total, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Season:    season,
		Status:    model.RunStatusRunning,
		Total:     total,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunProgress(ctx context.Context, runID string, snap model.ProgressSnapshot) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET total = $1, processed = $2, success_count = $3, fail_count = $4, updated_at = $5 WHERE id = $6`,
		snap.Total, snap.Processed, snap.SuccessCount, snap.FailCount, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run progress %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanRun(s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = $1`, runID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Season != "" {
		query += fmt.Sprintf(` AND season = $%d`, argIdx)
		args = append(args, string(filter.Season))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) UpsertItem(ctx context.Context, runID string, item model.BatchItemState) error {
	var matchJSON []byte
	if item.Match != nil {
		var err error
		if matchJSON, err = json.Marshal(item.Match); err != nil {
			return eris.Wrap(err, "postgres: marshal match")
		}
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO run_items (run_id, source_id, title, status, match_json, message, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (run_id, source_id) DO UPDATE SET
		   title = $3, status = $4, match_json = $5, message = $6, updated_at = $7`,
		runID, item.SourceID, item.Title, string(item.Status), matchJSON, item.Message, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert item %s/%s", runID, item.SourceID)
}

func (s *PostgresStore) ListItems(ctx context.Context, runID string, status model.ItemStatus) ([]model.BatchItemState, error) {
	query := `SELECT source_id, title, status, match_json, message FROM run_items WHERE run_id = $1`
	args := []any{runID}
	if status != "" {
		query += ` AND status = $2`
		args = append(args, string(status))
	}
	query += ` ORDER BY seq`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list items %s", runID)
	}
	defer rows.Close()

	var items []model.BatchItemState
	for rows.Next() {
		var it model.BatchItemState
		var status string
		var matchJSON []byte
		if err := rows.Scan(&it.SourceID, &it.Title, &status, &matchJSON, &it.Message); err != nil {
			return nil, eris.Wrap(err, "postgres: scan item")
		}
		it.Status = model.ItemStatus(status)
		if matchJSON != nil {
			if it.Match, err = unmarshalMatch(matchJSON); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal match")
			}
		}
		items = append(items, it)
	}
	return items, eris.Wrap(rows.Err(), "postgres: list items iterate")
}

func (s *PostgresStore) GetCachedEpisodes(ctx context.Context, candidateID string) ([]model.Episode, error) {
	var episodesJSON []byte
	err := s.pool.QueryRow(ctx,
		`SELECT episodes FROM episode_cache WHERE candidate_id = $1 AND expires_at > now()`,
		candidateID,
	).Scan(&episodesJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached episodes")
	}

	episodes := []model.Episode{}
	if err := json.Unmarshal(episodesJSON, &episodes); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached episodes")
	}
	return episodes, nil
}

func (s *PostgresStore) SetCachedEpisodes(ctx context.Context, candidateID string, episodes []model.Episode, ttl time.Duration) error {
	now := time.Now().UTC()
	episodesJSON, err := json.Marshal(episodes)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal episodes")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO episode_cache (candidate_id, episodes, cached_at, expires_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (candidate_id) DO UPDATE SET episodes = $2, cached_at = $3, expires_at = $4`,
		candidateID, episodesJSON, now, now.Add(ttl),
	)
	return eris.Wrap(err, "postgres: set cached episodes")
}

func (s *PostgresStore) DeleteExpiredEpisodes(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM episode_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired episodes")
	}
	return int(tag.RowsAffected()), nil
}
