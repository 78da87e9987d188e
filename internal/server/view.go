package server

import (
	"sync"

	"github.com/sells-group/autolink/internal/model"
)

// View keeps the latest snapshot and item states of a run for readers on
// other goroutines. It satisfies the reconcile observer contract.
type View struct {
	mu    sync.RWMutex
	snap  model.ProgressSnapshot
	items []model.BatchItemState
	index map[string]int
}

// NewView returns an empty view.
func NewView() *View {
	return &View{index: make(map[string]int)}
}

func (v *View) OnSnapshot(snap model.ProgressSnapshot) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.snap = snap.Clone()
}

func (v *View) OnItem(item model.BatchItemState) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if i, ok := v.index[item.SourceID]; ok {
		v.items[i] = item.Clone()
		return
	}
	v.index[item.SourceID] = len(v.items)
	v.items = append(v.items, item.Clone())
}

// Snapshot returns copies of the latest snapshot and items in first-seen order.
func (v *View) Snapshot() (model.ProgressSnapshot, []model.BatchItemState) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	items := make([]model.BatchItemState, len(v.items))
	for i, it := range v.items {
		items[i] = it.Clone()
	}
	return v.snap.Clone(), items
}
