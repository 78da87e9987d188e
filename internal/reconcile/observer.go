package reconcile

import "github.com/sells-group/autolink/internal/model"

// Observer receives progress from a running batch. Every value passed is a
// copy owned by the observer. Calls happen on the driver's goroutine, so
// implementations must return promptly.
type Observer interface {
	OnSnapshot(snap model.ProgressSnapshot)
	OnItem(item model.BatchItemState)
}

// Funcs adapts plain functions to Observer. Nil fields are skipped.
type Funcs struct {
	Snapshot func(model.ProgressSnapshot)
	Item     func(model.BatchItemState)
}

func (f Funcs) OnSnapshot(snap model.ProgressSnapshot) {
	if f.Snapshot != nil {
		f.Snapshot(snap)
	}
}

func (f Funcs) OnItem(item model.BatchItemState) {
	if f.Item != nil {
		f.Item(item)
	}
}

// Nop discards all events.
var Nop Observer = Funcs{}

type multi []Observer

// Multi fans events out to each observer in order, giving each its own copy.
func Multi(observers ...Observer) Observer {
	var out multi
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	return out
}

func (m multi) OnSnapshot(snap model.ProgressSnapshot) {
	for _, o := range m {
		o.OnSnapshot(snap.Clone())
	}
}

func (m multi) OnItem(item model.BatchItemState) {
	for _, o := range m {
		o.OnItem(item.Clone())
	}
}
