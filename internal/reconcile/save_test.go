package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/sells-group/autolink/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSaveAll(t *testing.T) {
	items := []model.BatchItemState{
		{SourceID: "a", Title: "A", Status: model.ItemSuccess, Match: &model.CandidateSummary{ID: "1", Season: 1}},
		{SourceID: "b", Title: "B", Status: model.ItemFailed},
		{SourceID: "c", Title: "C", Status: model.ItemSuccess, Match: &model.CandidateSummary{ID: "3", Season: 2}},
		{SourceID: "d", Title: "D", Status: model.ItemSuccess},
	}
	saver := new(mockSaver)
	saver.On("SaveLink", mock.Anything, model.Link{AnimeID: "a", TheTVDBID: "1", Season: 1, Name: "A"}).
		Return(model.Link{ID: "la"}, nil).Once()
	saver.On("SaveLink", mock.Anything, model.Link{AnimeID: "c", TheTVDBID: "3", Season: 2, Name: "C"}).
		Return(model.Link{}, errors.New("duplicate link")).Once()

	tally := SaveAll(context.Background(), saver, items)

	assert.Equal(t, Tally{OK: 1, Failed: 1}, tally)
	assert.Equal(t, "Link saved successfully!", items[0].Message)
	assert.Equal(t, "Save failed: duplicate link", items[2].Message)
	assert.Equal(t, model.ItemSuccess, items[2].Status)
	assert.Empty(t, items[3].Message)
	saver.AssertExpectations(t)
}

func TestSyncAll(t *testing.T) {
	items := []model.BatchItemState{
		{SourceID: "a", Status: model.ItemAlreadyLinked},
		{SourceID: "b", Status: model.ItemAlreadyLinked},
		{SourceID: "c", Status: model.ItemAlreadyLinked},
		{SourceID: "d", Status: model.ItemSuccess},
	}
	links := map[string]model.Link{
		"a": {ID: "la", AnimeID: "a"},
		"b": {ID: "lb", AnimeID: "b"},
	}
	syncer := new(mockSyncer)
	syncer.On("SyncLink", mock.Anything, "la").Return(true, nil).Once()
	syncer.On("SyncLink", mock.Anything, "lb").Return(false, errors.New("upstream down")).Once()

	tally := SyncAll(context.Background(), syncer, items, links)

	assert.Equal(t, Tally{OK: 1, Failed: 2}, tally)
	assert.Equal(t, "Synced successfully!", items[0].Message)
	assert.Equal(t, "Sync failed: upstream down", items[1].Message)
	syncer.AssertExpectations(t)
	syncer.AssertNotCalled(t, "SyncLink", mock.Anything, "")
}
