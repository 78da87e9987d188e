package model

import "time"

// RunStatus represents the lifecycle of a persisted batch run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusCancelled RunStatus = "cancelled"
)

// Run is a persisted batch reconciliation run.
type Run struct {
	ID           string    `json:"id"`
	Season       SeasonKey `json:"season,omitempty"`
	Status       RunStatus `json:"status"`
	Total        int       `json:"total"`
	Processed    int       `json:"processed"`
	SuccessCount int       `json:"success_count"`
	FailCount    int       `json:"fail_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
