package models

import (
	"encoding/json"
	"time"
)

// AgentSignalEntry is one analyst's contribution to a ticker entry.
// AgentName keeps the suffixed wire key (e.g. "warren_buffett_agent")
// verbatim; display metadata is resolved against the catalog at read time.
type AgentSignalEntry struct {
	AgentName string
	Signal    AgentSignal
}

func (e AgentSignalEntry) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(e.Signal)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	nb, err := json.Marshal(e.AgentName)
	if err != nil {
		return nil, err
	}
	m["agent_name"] = nb
	return json.Marshal(m)
}

func (e *AgentSignalEntry) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if v, ok := m["agent_name"]; ok {
		if err := json.Unmarshal(v, &e.AgentName); err != nil {
			return err
		}
		delete(m, "agent_name")
	}
	rb, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return json.Unmarshal(rb, &e.Signal)
}

// TickerAnalysis is the reconciled entry for one (source key, ticker) pair:
// the decision as the primary signal plus the full per-agent signal list.
type TickerAnalysis struct {
	Ticker       string             `json:"ticker"`
	Action       Action             `json:"action,omitempty"`
	Confidence   *float64           `json:"confidence,omitempty"`
	Reasoning    json.RawMessage    `json:"reasoning,omitempty"`
	AgentSignals []AgentSignalEntry `json:"agent_signals"`
}

// ProminentSignal selects the agent signal with the highest confidence.
// Ties keep the first-seen entry, and a signal without a confidence never
// displaces one that has it.
func (t TickerAnalysis) ProminentSignal() (AgentSignalEntry, bool) {
	var best AgentSignalEntry
	found := false
	for _, s := range t.AgentSignals {
		if !found {
			best = s
			found = true
			continue
		}
		bc, sc := best.Signal.Confidence, s.Signal.Confidence
		switch {
		case sc == nil:
		case bc == nil:
			best = s
		case *sc > *bc:
			best = s
		}
	}
	return best, found
}

// Clone returns a deep copy, including nested raw JSON and extras.
func (t TickerAnalysis) Clone() TickerAnalysis {
	out := t
	if t.Confidence != nil {
		c := *t.Confidence
		out.Confidence = &c
	}
	out.Reasoning = append(json.RawMessage(nil), t.Reasoning...)
	if t.AgentSignals != nil {
		out.AgentSignals = make([]AgentSignalEntry, len(t.AgentSignals))
		for i, s := range t.AgentSignals {
			out.AgentSignals[i] = AgentSignalEntry{AgentName: s.AgentName, Signal: s.Signal.Clone()}
		}
	}
	return out
}

// SourceMeta describes the run that produced a dataset slice.
type SourceMeta struct {
	RunID       string    `json:"run_id,omitempty"`
	Tickers     []string  `json:"tickers_analyzed,omitempty"`
	TotalCost   float64   `json:"total_cost"`
	TotalTokens int64     `json:"total_tokens"`
	UpdatedAt   time.Time `json:"last_updated"`
}

// SourceDataset is the reconciled result slice for one source key.
// Entries are ordered by ticker.
type SourceDataset struct {
	SourceKey string `json:"source_key"`
	SourceMeta
	Entries []TickerAnalysis `json:"entries"`
}

// Clone returns a deep copy of the dataset.
func (d SourceDataset) Clone() SourceDataset {
	out := d
	out.Tickers = append([]string(nil), d.Tickers...)
	if d.Entries != nil {
		out.Entries = make([]TickerAnalysis, len(d.Entries))
		for i, e := range d.Entries {
			out.Entries[i] = e.Clone()
		}
	}
	return out
}
