package models

import "encoding/json"

// FrameType identifies the decoded variant of a stream frame.
type FrameType string

const (
	FrameStart    FrameType = "start"
	FrameProgress FrameType = "progress"
	FrameComplete FrameType = "complete"
	FrameError    FrameType = "error"
	FrameUnknown  FrameType = "unknown"
)

// Frame is one decoded event from the analysis stream.
type Frame interface {
	FrameType() FrameType
}

// StartEvent announces that the backend accepted the run.
type StartEvent struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (*StartEvent) FrameType() FrameType { return FrameStart }

// ProgressEvent reports one (agent, ticker) status change.
type ProgressEvent struct {
	RunID     string      `json:"run_id"`
	Agent     string      `json:"agent"`
	Ticker    string      `json:"ticker"`
	Status    AgentStatus `json:"status"`
	Message   string      `json:"message,omitempty"`
	Cost      *float64    `json:"cost,omitempty"`
	Tokens    *int64      `json:"tokens,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

func (*ProgressEvent) FrameType() FrameType { return FrameProgress }

// CompleteEvent carries the final decisions and the full per-agent signal
// matrix. Decisions are keyed by ticker; analyst signals are keyed by the
// suffixed wire agent key, then by ticker.
type CompleteEvent struct {
	RunID          string                            `json:"run_id"`
	Decisions      map[string]Decision               `json:"decisions"`
	AnalystSignals map[string]map[string]AgentSignal `json:"analyst_signals"`
	TotalCost      float64                           `json:"total_cost"`
	TotalTokens    int64                             `json:"total_tokens"`
	Timestamp      string                            `json:"timestamp,omitempty"`
}

func (*CompleteEvent) FrameType() FrameType { return FrameComplete }

// ErrorEvent terminates the run on the backend side.
type ErrorEvent struct {
	RunID     string          `json:"run_id,omitempty"`
	Message   string          `json:"message"`
	Details   json.RawMessage `json:"details,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

func (*ErrorEvent) FrameType() FrameType { return FrameError }

// UnknownEvent preserves frames with an unrecognized event name so callers
// can log or skip them without losing the payload.
type UnknownEvent struct {
	Event string
	Data  json.RawMessage
}

func (*UnknownEvent) FrameType() FrameType { return FrameUnknown }
