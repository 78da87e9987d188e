package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/autolink/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	season        TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'running',
	total         INTEGER NOT NULL DEFAULT 0,
	processed     INTEGER NOT NULL DEFAULT 0,
	success_count INTEGER NOT NULL DEFAULT 0,
	fail_count    INTEGER NOT NULL DEFAULT 0,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_items (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	source_id  TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	match_json TEXT,
	message    TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE (run_id, source_id)
);

CREATE TABLE IF NOT EXISTS episode_cache (
	candidate_id TEXT PRIMARY KEY,
	episodes     TEXT NOT NULL,
	cached_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_season ON runs(season);
CREATE INDEX IF NOT EXISTS idx_run_items_run_status ON run_items(run_id, status);
CREATE INDEX IF NOT EXISTS idx_episode_cache_expires_at ON episode_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, season model.SeasonKey, total int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, season, status, total, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(season), string(model.RunStatusRunning), total, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunProgress(ctx context.Context, runID string, snap model.ProgressSnapshot) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET total = ?, processed = ?, success_count = ?, fail_count = ?, updated_at = ? WHERE id = ?`,
		snap.Total, snap.Processed, snap.SuccessCount, snap.FailCount, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run progress %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const runColumns = `id, season, status, total, processed, success_count, fail_count, created_at, updated_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Season != "" {
		query += ` AND season = ?`
		args = append(args, string(filter.Season))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) UpsertItem(ctx context.Context, runID string, item model.BatchItemState) error {
	matchJSON, err := marshalMatch(item.Match)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal match")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO run_items (run_id, source_id, title, status, match_json, message, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, source_id) DO UPDATE SET
		   title = excluded.title, status = excluded.status, match_json = excluded.match_json,
		   message = excluded.message, updated_at = excluded.updated_at`,
		runID, item.SourceID, item.Title, string(item.Status), matchJSON, item.Message, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert item %s/%s", runID, item.SourceID)
}

func (s *SQLiteStore) ListItems(ctx context.Context, runID string, status model.ItemStatus) ([]model.BatchItemState, error) {
	query := `SELECT source_id, title, status, match_json, message FROM run_items WHERE run_id = ?`
	args := []any{runID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY seq`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list items %s", runID)
	}
	defer rows.Close()

	var items []model.BatchItemState
	for rows.Next() {
		var it model.BatchItemState
		var status string
		var matchJSON sql.NullString
		if err := rows.Scan(&it.SourceID, &it.Title, &status, &matchJSON, &it.Message); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan item")
		}
		it.Status = model.ItemStatus(status)
		if matchJSON.Valid {
			if it.Match, err = unmarshalMatch([]byte(matchJSON.String)); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal match")
			}
		}
		items = append(items, it)
	}
	return items, eris.Wrap(rows.Err(), "sqlite: list items iterate")
}

func (s *SQLiteStore) GetCachedEpisodes(ctx context.Context, candidateID string) ([]model.Episode, error) {
	var episodesJSON string
	err := s.db.QueryRowContext(ctx,
		`SELECT episodes FROM episode_cache WHERE candidate_id = ? AND expires_at > ?`,
		candidateID, time.Now().UTC(),
	).Scan(&episodesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached episodes")
	}

	episodes := []model.Episode{}
	if err := json.Unmarshal([]byte(episodesJSON), &episodes); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached episodes")
	}
	return episodes, nil
}

func (s *SQLiteStore) SetCachedEpisodes(ctx context.Context, candidateID string, episodes []model.Episode, ttl time.Duration) error {
	now := time.Now().UTC()
	episodesJSON, err := json.Marshal(episodes)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal episodes")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO episode_cache (candidate_id, episodes, cached_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (candidate_id) DO UPDATE SET
		   episodes = excluded.episodes, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		candidateID, string(episodesJSON), now, now.Add(ttl),
	)
	return eris.Wrap(err, "sqlite: set cached episodes")
}

func (s *SQLiteStore) DeleteExpiredEpisodes(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM episode_cache WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired episodes")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var season, status string
	err := row.Scan(&r.ID, &season, &status, &r.Total, &r.Processed,
		&r.SuccessCount, &r.FailCount, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Season = model.SeasonKey(season)
	r.Status = model.RunStatus(status)
	return &r, nil
}

func marshalMatch(m *model.CandidateSummary) (any, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func unmarshalMatch(b []byte) (*model.CandidateSummary, error) {
	var m model.CandidateSummary
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
