package models

import (
	"encoding/json"
	"testing"
)

func fp(v float64) *float64 { return &v }

func TestProminentSignalHighestConfidence(t *testing.T) {
	ta := TickerAnalysis{AgentSignals: []AgentSignalEntry{
		{AgentName: "ben_graham_agent", Signal: AgentSignal{Signal: "neutral", Confidence: fp(40)}},
		{AgentName: "warren_buffett_agent", Signal: AgentSignal{Signal: "bullish", Confidence: fp(90)}},
		{AgentName: "cathie_wood_agent", Signal: AgentSignal{Signal: "bullish", Confidence: fp(70)}},
	}}
	best, ok := ta.ProminentSignal()
	if !ok || best.AgentName != "warren_buffett_agent" {
		t.Fatalf("prominent = %+v, ok = %v", best, ok)
	}
}

func TestProminentSignalTieKeepsFirstSeen(t *testing.T) {
	ta := TickerAnalysis{AgentSignals: []AgentSignalEntry{
		{AgentName: "first_agent", Signal: AgentSignal{Confidence: fp(80)}},
		{AgentName: "second_agent", Signal: AgentSignal{Confidence: fp(80)}},
	}}
	best, _ := ta.ProminentSignal()
	if best.AgentName != "first_agent" {
		t.Fatalf("tie broke to %q", best.AgentName)
	}
}

func TestProminentSignalNilNeverWins(t *testing.T) {
	ta := TickerAnalysis{AgentSignals: []AgentSignalEntry{
		{AgentName: "scored_agent", Signal: AgentSignal{Confidence: fp(5)}},
		{AgentName: "unscored_agent", Signal: AgentSignal{Signal: "bullish"}},
	}}
	best, _ := ta.ProminentSignal()
	if best.AgentName != "scored_agent" {
		t.Fatalf("nil confidence displaced a scored signal: %q", best.AgentName)
	}

	// But an unscored signal is still returned when nothing is scored.
	ta = TickerAnalysis{AgentSignals: []AgentSignalEntry{
		{AgentName: "only_agent", Signal: AgentSignal{Signal: "neutral"}},
	}}
	best, ok := ta.ProminentSignal()
	if !ok || best.AgentName != "only_agent" {
		t.Fatalf("unscored-only list: %+v, ok = %v", best, ok)
	}
}

func TestProminentSignalEmpty(t *testing.T) {
	var ta TickerAnalysis
	if _, ok := ta.ProminentSignal(); ok {
		t.Fatal("expected no prominent signal for empty list")
	}
}

func TestAgentSignalEntryJSONCarriesAgentName(t *testing.T) {
	e := AgentSignalEntry{
		AgentName: "risk_management_agent",
		Signal: AgentSignal{
			RemainingPositionLimit: fp(25000),
			CurrentPrice:           fp(212.5),
			Extra:                  map[string]json.RawMessage{"volatility": json.RawMessage(`0.31`)},
		},
	}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if string(m["agent_name"]) != `"risk_management_agent"` {
		t.Fatalf("agent_name = %s", m["agent_name"])
	}
	if string(m["volatility"]) != `0.31` {
		t.Fatalf("extra field lost: %s", b)
	}

	var back AgentSignalEntry
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal entry: %v", err)
	}
	if back.AgentName != e.AgentName {
		t.Fatalf("agent name = %q", back.AgentName)
	}
	if back.Signal.RemainingPositionLimit == nil || *back.Signal.RemainingPositionLimit != 25000 {
		t.Fatalf("position limit = %v", back.Signal.RemainingPositionLimit)
	}
	if _, ok := back.Signal.Extra["agent_name"]; ok {
		t.Fatal("agent_name leaked into signal extras")
	}
}

func TestDatasetCloneIsIndependent(t *testing.T) {
	ds := SourceDataset{
		SourceKey: "manual",
		Entries: []TickerAnalysis{{
			Ticker:     "AAPL",
			Confidence: fp(66),
			AgentSignals: []AgentSignalEntry{
				{AgentName: "sentiment_agent", Signal: AgentSignal{Signal: "bullish", Extra: map[string]json.RawMessage{"k": json.RawMessage(`1`)}}},
			},
		}},
	}
	cp := ds.Clone()
	*cp.Entries[0].Confidence = 1
	cp.Entries[0].AgentSignals[0].Signal.Extra["k"] = json.RawMessage(`2`)

	if *ds.Entries[0].Confidence != 66 {
		t.Fatal("clone shares confidence pointer")
	}
	if string(ds.Entries[0].AgentSignals[0].Signal.Extra["k"]) != `1` {
		t.Fatal("clone shares extras map")
	}
}
