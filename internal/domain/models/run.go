package models

import "time"

// RunPhase is the run-level lifecycle state.
type RunPhase string

const (
	RunIdle     RunPhase = "IDLE"
	RunRunning  RunPhase = "RUNNING"
	RunComplete RunPhase = "COMPLETE"
	RunError    RunPhase = "ERROR"
)

// Terminal reports whether the run reached a final phase.
func (p RunPhase) Terminal() bool {
	return p == RunComplete || p == RunError
}

// RunStatus is an immutable snapshot of one analysis run. Version increments
// on every mutation so pollers and push clients can detect change.
type RunStatus struct {
	Phase       RunPhase    `json:"phase"`
	RunID       string      `json:"run_id,omitempty"`
	SourceKey   string      `json:"source_key"`
	Tickers     []string    `json:"tickers,omitempty"`
	Agents      []string    `json:"agents,omitempty"`
	Percent     int         `json:"progress_percent"`
	Error       *ErrorEvent `json:"error,omitempty"`
	TotalCost   float64     `json:"total_cost,omitempty"`
	TotalTokens int64       `json:"total_tokens,omitempty"`
	StartedAt   time.Time   `json:"started_at,omitzero"`
	UpdatedAt   time.Time   `json:"updated_at,omitzero"`
	Version     uint64      `json:"version"`
}
