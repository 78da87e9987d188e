package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/autolink/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), "SPRING_2024", "running", 7, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), "SPRING_2024", 7)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 7, run.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, season, status, total, processed, success_count, fail_count, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "season", "status", "total", "processed", "success_count", "fail_count", "created_at", "updated_at",
		}).AddRow("run-1", "FALL_2023", "complete", 4, 4, 3, 1, now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, model.SeasonKey("FALL_2023"), run.Season)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 3, run.SuccessCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status`).
		WithArgs("complete", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing", model.RunStatusComplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_BuildsFilters(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`AND status = \$1 AND season = \$2 ORDER BY created_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("running", "SPRING_2024", 10, 20).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "season", "status", "total", "processed", "success_count", "fail_count", "created_at", "updated_at",
		}))

	runs, err := s.ListRuns(context.Background(), RunFilter{
		Status: model.RunStatusRunning, Season: "SPRING_2024", Limit: 10, Offset: 20,
	})
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertItem(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`(?s)INSERT INTO run_items .* ON CONFLICT \(run_id, source_id\)`).
		WithArgs("run-1", "42", "Frieren", "success", pgxmock.AnyArg(), "Matched", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertItem(context.Background(), "run-1", model.BatchItemState{
		SourceID: "42",
		Title:    "Frieren",
		Status:   model.ItemSuccess,
		Match:    &model.CandidateSummary{ID: "9", Season: 1},
		Message:  "Matched",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListItems_StatusFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM run_items WHERE run_id = \$1 AND status = \$2 ORDER BY seq`).
		WithArgs("run-1", "failed").
		WillReturnRows(pgxmock.NewRows([]string{"source_id", "title", "status", "match_json", "message"}).
			AddRow("7", "Seven", "failed", []byte(nil), "Failed: boom"))

	items, err := s.ListItems(context.Background(), "run-1", model.ItemFailed)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, model.ItemFailed, items[0].Status)
	assert.Nil(t, items[0].Match)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedEpisodes_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT episodes FROM episode_cache`).
		WithArgs("123").
		WillReturnError(pgx.ErrNoRows)

	result, err := s.GetCachedEpisodes(context.Background(), "123")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedEpisodes(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT episodes FROM episode_cache`).
		WithArgs("123").
		WillReturnRows(pgxmock.NewRows([]string{"episodes"}).
			AddRow([]byte(`[{"season_number":2,"episode_number":1,"air_date":"2017-04-01"}]`)))

	result, err := s.GetCachedEpisodes(context.Background(), "123")
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "2017-04-01", result[0].AirDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedEpisodes_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT episodes FROM episode_cache`).
		WithArgs("123").
		WillReturnError(errors.New("connection lost"))

	_, err := s.GetCachedEpisodes(context.Background(), "123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get cached episodes")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetCachedEpisodes_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(candidate_id\)`).
		WithArgs("123", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetCachedEpisodes(context.Background(), "123", []model.Episode{{SeasonNumber: 1}}, time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpiredEpisodes(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM episode_cache WHERE expires_at <= now\(\)`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteExpiredEpisodes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
