package reconcile

import (
	"context"

	"github.com/sells-group/autolink/internal/model"
	"go.uber.org/zap"
)

// Syncer pushes an existing link to downstream consumers.
type Syncer interface {
	SyncLink(ctx context.Context, linkID string) (bool, error)
}

// Tally counts the outcome of a bulk save or sync.
type Tally struct {
	OK     int
	Failed int
}

// saveItem saves the link for a successful item and returns its new message.
// A failed save only changes the message; the item stays successful.
func saveItem(ctx context.Context, saver Saver, item model.BatchItemState) (string, bool) {
	_, err := saver.SaveLink(ctx, model.Link{
		AnimeID:   item.SourceID,
		TheTVDBID: item.Match.ID,
		Season:    item.Match.Season,
		Name:      item.Title,
	})
	if err != nil {
		zap.L().Warn("reconcile: save link failed", zap.String("source_id", item.SourceID), zap.Error(err))
		return "Save failed: " + err.Error(), false
	}
	return msgSaved, true
}

// SaveAll saves every successful item with a matched candidate, updating
// item messages in place.
func SaveAll(ctx context.Context, saver Saver, items []model.BatchItemState) Tally {
	var t Tally
	for i := range items {
		it := &items[i]
		if it.Status != model.ItemSuccess || it.Match == nil || it.Match.ID == "" {
			continue
		}
		var ok bool
		if it.Message, ok = saveItem(ctx, saver, *it); ok {
			t.OK++
		} else {
			t.Failed++
		}
	}
	zap.L().Info("reconcile: save all", zap.Int("saved", t.OK), zap.Int("failed", t.Failed))
	return t
}

// SyncAll syncs the saved link of every already-linked item. Items with no
// saved link count as failures.
func SyncAll(ctx context.Context, syncer Syncer, items []model.BatchItemState, links map[string]model.Link) Tally {
	var t Tally
	for i := range items {
		it := &items[i]
		if it.Status != model.ItemAlreadyLinked {
			continue
		}
		link, ok := links[it.SourceID]
		if !ok || link.ID == "" {
			zap.L().Warn("reconcile: no saved link", zap.String("source_id", it.SourceID))
			t.Failed++
			continue
		}
		if _, err := syncer.SyncLink(ctx, link.ID); err != nil {
			it.Message = "Sync failed: " + err.Error()
			t.Failed++
			continue
		}
		it.Message = msgSynced
		t.OK++
	}
	zap.L().Info("reconcile: sync all", zap.Int("synced", t.OK), zap.Int("failed", t.Failed))
	return t
}
