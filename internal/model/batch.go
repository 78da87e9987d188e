package model

import (
	"fmt"
	"time"
)

// ItemStatus is the reconciliation state of one source record in a batch.
type ItemStatus string

const (
	ItemPending       ItemStatus = "pending"
	ItemLinking       ItemStatus = "linking"
	ItemSuccess       ItemStatus = "success"
	ItemFailed        ItemStatus = "failed"
	ItemAlreadyLinked ItemStatus = "already_linked"
)

// Terminal reports whether the status is a final outcome for a run.
func (s ItemStatus) Terminal() bool {
	return s == ItemSuccess || s == ItemFailed || s == ItemAlreadyLinked
}

// CandidateSummary is the part of a matched candidate shown next to an item.
type CandidateSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Image  string `json:"image,omitempty"`
	Season int    `json:"season"`
	Label  string `json:"label,omitempty"`
	Query  string `json:"query,omitempty"`
}

// BatchItemState is the driver-owned state of one item in a batch run.
type BatchItemState struct {
	SourceID string            `json:"source_id"`
	Title    string            `json:"title"`
	Status   ItemStatus        `json:"status"`
	Match    *CandidateSummary `json:"match,omitempty"`
	Message  string            `json:"message,omitempty"`
}

// Clone returns a deep copy safe to hand to observers.
func (s BatchItemState) Clone() BatchItemState {
	if s.Match != nil {
		m := *s.Match
		s.Match = &m
	}
	return s
}

// ProgressSnapshot is an immutable view of batch progress.
// Processed + Remaining == Total holds for every published snapshot.
type ProgressSnapshot struct {
	Total        int             `json:"total"`
	Processed    int             `json:"processed"`
	Remaining    int             `json:"remaining"`
	SuccessCount int             `json:"success_count"`
	FailCount    int             `json:"fail_count"`
	StartedAt    time.Time       `json:"started_at"`
	LastEventAt  time.Time       `json:"last_event_at,omitempty"`
	Latencies    []time.Duration `json:"latencies"`
	Current      string          `json:"current,omitempty"`
	Running      bool            `json:"running"`
	Cancelled    bool            `json:"cancelled,omitempty"`
}

// Clone returns a copy that shares no memory with s.
func (s ProgressSnapshot) Clone() ProgressSnapshot {
	s.Latencies = append([]time.Duration(nil), s.Latencies...)
	return s
}

// Percent returns completion in [0, 100].
func (s ProgressSnapshot) Percent() float64 {
	if s.Total == 0 {
		return 100
	}
	return float64(s.Processed) / float64(s.Total) * 100
}

// Elapsed returns the wall time since the run started.
func (s ProgressSnapshot) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// ETA estimates the time to finish from the moving latency average.
func (s ProgressSnapshot) ETA() ETA {
	if s.Processed < 2 {
		return ETA{State: ETAIndeterminate}
	}
	if s.Remaining <= 0 {
		return ETA{State: ETAKnown}
	}
	if len(s.Latencies) == 0 {
		return ETA{State: ETAUnknown}
	}
	var sum time.Duration
	for _, l := range s.Latencies {
		sum += l
	}
	avg := sum / time.Duration(len(s.Latencies))
	return ETA{State: ETAKnown, Duration: avg * time.Duration(s.Remaining)}
}

// ETAState says whether an ETA could be computed.
type ETAState string

const (
	ETAIndeterminate ETAState = "indeterminate"
	ETAUnknown       ETAState = "unknown"
	ETAKnown         ETAState = "known"
)

// ETA is an estimated time to completion.
type ETA struct {
	State    ETAState      `json:"state"`
	Duration time.Duration `json:"duration"`
}

const etaDisplayCap = 2 * time.Hour

func (e ETA) String() string {
	switch e.State {
	case ETAIndeterminate:
		return "Calculating..."
	case ETAUnknown:
		return "--:--"
	}
	secs := int(e.Duration.Round(time.Second) / time.Second)
	if secs <= 0 {
		return "0:00"
	}
	if time.Duration(secs)*time.Second > etaDisplayCap {
		return ">2hrs"
	}
	return FormatClock(time.Duration(secs) * time.Second)
}

// FormatClock renders a duration as m:ss.
func FormatClock(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
