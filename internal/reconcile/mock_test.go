package reconcile

import (
	"context"
	"time"

	"github.com/sells-group/autolink/internal/model"
	"github.com/sells-group/autolink/internal/resolve"
	"github.com/stretchr/testify/mock"
)

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, src model.SourceRecord) (resolve.Outcome, error) {
	args := m.Called(ctx, src)
	return args.Get(0).(resolve.Outcome), args.Error(1)
}

type resolverFunc func(ctx context.Context, src model.SourceRecord) (resolve.Outcome, error)

func (f resolverFunc) Resolve(ctx context.Context, src model.SourceRecord) (resolve.Outcome, error) {
	return f(ctx, src)
}

type mockSaver struct {
	mock.Mock
}

func (m *mockSaver) SaveLink(ctx context.Context, link model.Link) (model.Link, error) {
	args := m.Called(ctx, link)
	return args.Get(0).(model.Link), args.Error(1)
}

type mockSyncer struct {
	mock.Mock
}

func (m *mockSyncer) SyncLink(ctx context.Context, linkID string) (bool, error) {
	args := m.Called(ctx, linkID)
	return args.Bool(0), args.Error(1)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Search(ctx context.Context, query string) ([]model.CandidateEntry, error) {
	args := m.Called(ctx, query)
	if v := args.Get(0); v != nil {
		return v.([]model.CandidateEntry), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockCatalog) Episodes(ctx context.Context, candidateID string) ([]model.Episode, error) {
	args := m.Called(ctx, candidateID)
	if v := args.Get(0); v != nil {
		return v.([]model.Episode), args.Error(1)
	}
	return nil, args.Error(1)
}

// recorder keeps every event the driver publishes.
type recorder struct {
	snaps []model.ProgressSnapshot
	items []model.BatchItemState
}

func (r *recorder) OnSnapshot(s model.ProgressSnapshot) { r.snaps = append(r.snaps, s) }
func (r *recorder) OnItem(it model.BatchItemState)      { r.items = append(r.items, it) }

// fakeClock is advanced explicitly by tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }
