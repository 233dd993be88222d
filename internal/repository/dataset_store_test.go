package repository

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
)

func entry(ticker string, action models.Action) models.TickerAnalysis {
	return models.TickerAnalysis{
		Ticker: ticker,
		Action: action,
		AgentSignals: []models.AgentSignalEntry{
			{AgentName: "warren_buffett_agent", Signal: models.AgentSignal{Signal: "bullish"}},
		},
	}
}

func TestUpsertReplacesPerTicker(t *testing.T) {
	s := NewMemoryDatasetStore()

	s.Upsert("manual", models.SourceMeta{RunID: "r1"}, []models.TickerAnalysis{
		entry("MSFT", models.ActionBuy),
		entry("AAPL", models.ActionHold),
	})
	s.Upsert("manual", models.SourceMeta{RunID: "r2"}, []models.TickerAnalysis{
		entry("MSFT", models.ActionSell),
	})

	ds, ok := s.Get("manual")
	if !ok {
		t.Fatal("dataset missing")
	}
	if ds.RunID != "r2" {
		t.Fatalf("meta not replaced, run id = %q", ds.RunID)
	}
	if len(ds.Entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(ds.Entries))
	}
	if ds.Entries[0].Ticker != "AAPL" || ds.Entries[1].Ticker != "MSFT" {
		t.Fatalf("entries not sorted by ticker: %q, %q", ds.Entries[0].Ticker, ds.Entries[1].Ticker)
	}
	if ds.Entries[0].Action != models.ActionHold {
		t.Fatalf("untouched ticker overwritten: %q", ds.Entries[0].Action)
	}
	if ds.Entries[1].Action != models.ActionSell {
		t.Fatalf("ticker not replaced: %q", ds.Entries[1].Action)
	}
	if len(ds.Tickers) != 2 || ds.Tickers[0] != "AAPL" || ds.Tickers[1] != "MSFT" {
		t.Fatalf("tickers_analyzed = %v", ds.Tickers)
	}
}

func TestGetReturnsDeepCopy(t *testing.T) {
	s := NewMemoryDatasetStore()
	e := entry("NVDA", models.ActionBuy)
	e.AgentSignals[0].Signal.Extra = map[string]json.RawMessage{"news": json.RawMessage(`"up"`)}
	s.Upsert("manual", models.SourceMeta{UpdatedAt: time.Now()}, []models.TickerAnalysis{e})

	ds, _ := s.Get("manual")
	ds.Entries[0].Action = models.ActionShort
	ds.Entries[0].AgentSignals[0].Signal.Signal = "bearish"
	ds.Entries[0].AgentSignals[0].Signal.Extra["news"] = json.RawMessage(`"down"`)

	again, _ := s.Get("manual")
	if again.Entries[0].Action != models.ActionBuy {
		t.Fatal("mutating a snapshot changed the store")
	}
	if again.Entries[0].AgentSignals[0].Signal.Signal != "bullish" {
		t.Fatal("mutating a snapshot signal changed the store")
	}
	if string(again.Entries[0].AgentSignals[0].Signal.Extra["news"]) != `"up"` {
		t.Fatal("mutating snapshot extras changed the store")
	}
}

func TestGetMissing(t *testing.T) {
	s := NewMemoryDatasetStore()
	if _, ok := s.Get("nope"); ok {
		t.Fatal("expected miss")
	}
}

func TestKeysSorted(t *testing.T) {
	s := NewMemoryDatasetStore()
	s.Upsert("value_investing_abc", models.SourceMeta{}, nil)
	s.Upsert("manual", models.SourceMeta{}, nil)
	s.Upsert("growth_investing_def", models.SourceMeta{}, nil)

	keys := s.Keys()
	want := []string{"growth_investing_def", "manual", "value_investing_abc"}
	if len(keys) != len(want) {
		t.Fatalf("keys = %v", keys)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("keys[%d] = %q, want %q", i, keys[i], want[i])
		}
	}
}
