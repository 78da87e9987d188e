// Package reconcile runs entity resolution over a batch of source records,
// one at a time, publishing item states and progress as it goes.
package reconcile

import (
	"context"
	"time"

	"github.com/sells-group/autolink/internal/model"
	"github.com/sells-group/autolink/internal/resolve"
	"go.uber.org/zap"
)

// Resolver resolves one source record.
type Resolver interface {
	Resolve(ctx context.Context, src model.SourceRecord) (resolve.Outcome, error)
}

// Saver persists a confirmed link.
type Saver interface {
	SaveLink(ctx context.Context, link model.Link) (model.Link, error)
}

// Driver is the batch reconciliation loop.
type Driver struct {
	resolver Resolver
	saver    Saver
	observer Observer
	now      func() time.Time
}

// Option configures a Driver.
type Option func(*Driver)

// WithSaver saves each link as soon as its item succeeds.
func WithSaver(s Saver) Option {
	return func(d *Driver) { d.saver = s }
}

// WithObserver sets the observer that receives item states and snapshots.
func WithObserver(o Observer) Option {
	return func(d *Driver) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithClock overrides time.Now for latency accounting.
func WithClock(now func() time.Time) Option {
	return func(d *Driver) { d.now = now }
}

// NewDriver creates a driver that resolves items with resolver.
func NewDriver(resolver Resolver, opts ...Option) *Driver {
	d := &Driver{resolver: resolver, observer: Nop, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Result is the final state of a batch run.
type Result struct {
	// Items holds one state per distinct source record, in input order.
	Items     []model.BatchItemState
	Progress  model.ProgressSnapshot
	Cancelled bool
}

// ByStatus returns copies of the items with the given status.
func (r *Result) ByStatus(status model.ItemStatus) []model.BatchItemState {
	var out []model.BatchItemState
	for _, it := range r.Items {
		if it.Status == status {
			out = append(out, it.Clone())
		}
	}
	return out
}

// Run reconciles items sequentially. Records whose id is in linked are
// marked already linked and never resolved. Cancellation of ctx is checked
// only before each item starts: the item in flight always finishes and
// items not yet started stay pending. Per-item failures are recorded on the
// item and never stop the run.
func (d *Driver) Run(ctx context.Context, items []model.SourceRecord, linked map[string]model.Link) *Result {
	var (
		states  []model.BatchItemState
		pending []int
		seen    = make(map[string]bool, len(items))
		sources = make([]model.SourceRecord, 0, len(items))
	)
	for _, src := range items {
		if seen[src.ID] {
			zap.L().Warn("reconcile: duplicate source id, keeping first", zap.String("source_id", src.ID))
			continue
		}
		seen[src.ID] = true

		state := model.BatchItemState{SourceID: src.ID, Title: src.DisplayTitle(), Status: model.ItemPending}
		if l, ok := linked[src.ID]; ok {
			state.Status = model.ItemAlreadyLinked
			state.Match = &model.CandidateSummary{ID: l.TheTVDBID, Title: l.Name, Season: l.Season}
			state.Message = alreadyLinkedMessage(l)
		} else {
			pending = append(pending, len(states))
		}
		states = append(states, state)
		sources = append(sources, src)
	}

	prog := newProgress(len(pending), d.now())
	for _, s := range states {
		d.observer.OnItem(s.Clone())
	}
	d.observer.OnSnapshot(prog.snapshot())

	zap.L().Info("reconcile: batch started",
		zap.Int("items", len(states)),
		zap.Int("pending", len(pending)),
		zap.Int("already_linked", len(states)-len(pending)),
	)

	// Item work must not be interrupted by cancellation.
	work := context.WithoutCancel(ctx)
	cancelled := false
	for _, idx := range pending {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		src := sources[idx]
		states[idx].Status = model.ItemLinking
		prog.begin(states[idx].Title)
		d.observer.OnItem(states[idx].Clone())
		d.observer.OnSnapshot(prog.snapshot())

		states[idx] = d.reconcileItem(work, src, states[idx])

		prog.complete(states, d.now())
		d.observer.OnItem(states[idx].Clone())
		d.observer.OnSnapshot(prog.snapshot())
	}

	prog.finish(cancelled)
	final := prog.snapshot()
	d.observer.OnSnapshot(final.Clone())

	zap.L().Info("reconcile: batch finished",
		zap.Int("processed", final.Processed),
		zap.Int("success", final.SuccessCount),
		zap.Int("failed", final.FailCount),
		zap.Bool("cancelled", cancelled),
		zap.Duration("elapsed", final.Elapsed(d.now())),
	)

	return &Result{Items: states, Progress: final, Cancelled: cancelled}
}

func (d *Driver) reconcileItem(ctx context.Context, src model.SourceRecord, state model.BatchItemState) model.BatchItemState {
	log := zap.L().With(zap.String("source_id", src.ID))

	out, err := d.resolver.Resolve(ctx, src)
	if err != nil {
		state.Status = model.ItemFailed
		state.Message = errorMessage(src, err)
		log.Warn("reconcile: item failed", zap.Error(err))
		return state
	}
	if !out.Matched() {
		state.Status = model.ItemFailed
		state.Message = noMatchMessage(src, out)
		log.Info("reconcile: no match", zap.String("reason", string(out.Reason)))
		return state
	}

	state.Status = model.ItemSuccess
	state.Match = summarize(out.Match)
	state.Message = matchedMessage(out.Match)

	if d.saver != nil {
		state.Message, _ = saveItem(ctx, d.saver, state)
	}
	return state
}
