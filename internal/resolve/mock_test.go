package resolve

import (
	"context"

	"github.com/sells-group/autolink/internal/model"
	"github.com/stretchr/testify/mock"
)

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
