package models

import (
	"fmt"
	"strings"
)

// AgentStatus is the per-cell lifecycle state.
type AgentStatus string

const (
	StatusIdle       AgentStatus = "IDLE"
	StatusInProgress AgentStatus = "IN_PROGRESS"
	StatusComplete   AgentStatus = "COMPLETE"
	StatusError      AgentStatus = "ERROR"
)

// Terminal reports whether the status accepts no further transitions.
// ERROR still overrides COMPLETE.
func (s AgentStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// UnmarshalJSON canonicalizes the wire value; backends differ in casing.
func (s *AgentStatus) UnmarshalJSON(b []byte) error {
	v := strings.Trim(string(b), `"`)
	switch AgentStatus(strings.ToUpper(v)) {
	case StatusIdle, StatusInProgress, StatusComplete, StatusError:
		*s = AgentStatus(strings.ToUpper(v))
		return nil
	}
	return fmt.Errorf("unknown agent status %q", v)
}

// ProgressCell tracks one (agent, ticker) pair within a run.
type ProgressCell struct {
	Agent     string      `json:"agent"`
	Ticker    string      `json:"ticker"`
	Status    AgentStatus `json:"status"`
	Message   string      `json:"message,omitempty"`
	Cost      *float64    `json:"cost,omitempty"`
	Tokens    *int64      `json:"tokens,omitempty"`
	UpdatedAt string      `json:"updated_at,omitempty"`
}

// ProgressSnapshot is the full cell matrix plus the derived percent.
type ProgressSnapshot struct {
	Percent int            `json:"progress_percent"`
	Version uint64         `json:"version"`
	Cells   []ProgressCell `json:"cells"`
}
