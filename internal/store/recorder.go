package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/autolink/internal/model"
)

// Recorder persists batch events for one run. It satisfies the reconcile
// observer contract. Write failures are logged and never interrupt the batch.
type Recorder struct {
	ctx           context.Context
	st            Store
	runID         string
	lastProcessed int
}

// NewRecorder records events for runID. Writes outlive cancellation of ctx
// so a cancelled run still lands in history.
func NewRecorder(ctx context.Context, st Store, runID string) *Recorder {
	return &Recorder{ctx: context.WithoutCancel(ctx), st: st, runID: runID, lastProcessed: -1}
}

func (r *Recorder) OnItem(item model.BatchItemState) {
	if err := r.st.UpsertItem(r.ctx, r.runID, item); err != nil {
		zap.L().Warn("store: record item failed",
			zap.String("run_id", r.runID),
			zap.String("source_id", item.SourceID),
			zap.Error(err),
		)
	}
}

// OnSnapshot writes counters whenever processed moves, and closes the run
// once the batch stops.
func (r *Recorder) OnSnapshot(snap model.ProgressSnapshot) {
	if snap.Processed != r.lastProcessed || !snap.Running {
		r.lastProcessed = snap.Processed
		if err := r.st.UpdateRunProgress(r.ctx, r.runID, snap); err != nil {
			zap.L().Warn("store: record progress failed", zap.String("run_id", r.runID), zap.Error(err))
		}
	}
	if snap.Running {
		return
	}

	status := model.RunStatusComplete
	if snap.Cancelled {
		status = model.RunStatusCancelled
	}
	if err := r.st.FinishRun(r.ctx, r.runID, status); err != nil {
		zap.L().Warn("store: finish run failed", zap.String("run_id", r.runID), zap.Error(err))
	}
}
