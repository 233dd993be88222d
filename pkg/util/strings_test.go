package util

import "testing"

func TestNormalizeTickers(t *testing.T) {
	got := NormalizeTickers([]string{" aapl", "MSFT", "aapl", "", "msft ", "NVDA"})
	want := []string{"AAPL", "MSFT", "NVDA"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDedupeStringsKeepsOrder(t *testing.T) {
	got := DedupeStrings([]string{"warren_buffett", "risk_manager", "warren_buffett", " "})
	if len(got) != 2 || got[0] != "warren_buffett" || got[1] != "risk_manager" {
		t.Fatalf("got %v", got)
	}
}
