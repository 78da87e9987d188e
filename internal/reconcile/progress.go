package reconcile

import (
	"time"

	"github.com/sells-group/autolink/internal/model"
)

// latencyWindow is the number of recent item latencies averaged for the ETA.
const latencyWindow = 5

// progress is the driver-owned run accounting. Only the driver goroutine
// touches it; observers get snapshots.
type progress struct {
	snap model.ProgressSnapshot
	// completed counts items finished so far, used to skip the first
	// item's latency.
	completed int
}

func newProgress(total int, now time.Time) *progress {
	return &progress{snap: model.ProgressSnapshot{
		Total:       total,
		Remaining:   total,
		StartedAt:   now,
		LastEventAt: now,
		Latencies:   make([]time.Duration, 0, latencyWindow),
		Running:     true,
	}}
}

func (p *progress) begin(label string) {
	p.snap.Current = label
}

// complete records one finished item and recounts outcomes over states.
func (p *progress) complete(states []model.BatchItemState, now time.Time) {
	p.completed++
	p.snap.Processed++
	p.snap.Remaining = p.snap.Total - p.snap.Processed

	p.snap.SuccessCount, p.snap.FailCount = 0, 0
	for _, s := range states {
		switch s.Status {
		case model.ItemSuccess:
			p.snap.SuccessCount++
		case model.ItemFailed:
			p.snap.FailCount++
		}
	}

	if p.completed > 1 {
		p.push(now.Sub(p.snap.LastEventAt))
	}
	p.snap.LastEventAt = now
}

func (p *progress) push(d time.Duration) {
	if len(p.snap.Latencies) == latencyWindow {
		copy(p.snap.Latencies, p.snap.Latencies[1:])
		p.snap.Latencies = p.snap.Latencies[:latencyWindow-1]
	}
	p.snap.Latencies = append(p.snap.Latencies, d)
}

func (p *progress) finish(cancelled bool) {
	p.snap.Current = ""
	p.snap.Running = false
	p.snap.Cancelled = cancelled
}

func (p *progress) snapshot() model.ProgressSnapshot {
	return p.snap.Clone()
}
