package progress

import (
	"testing"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
)

func progressFrame(agent, ticker string, status models.AgentStatus) *models.ProgressEvent {
	return &models.ProgressEvent{RunID: "run-1", Agent: agent, Ticker: ticker, Status: status}
}

func TestBoardSeedsIdleCells(t *testing.T) {
	b := NewBoard([]string{"warren_buffett", "risk_manager"}, []string{"AAPL", "MSFT"})

	cells := b.Cells()
	if len(cells) != 4 {
		t.Fatalf("expected 4 cells, got %d", len(cells))
	}
	for _, c := range cells {
		if c.Status != models.StatusIdle {
			t.Fatalf("cell %s/%s not idle: %s", c.Agent, c.Ticker, c.Status)
		}
	}
	if b.Percent() != 0 {
		t.Fatalf("fresh board percent = %d", b.Percent())
	}
}

func TestBoardTransitions(t *testing.T) {
	b := NewBoard([]string{"warren_buffett"}, []string{"AAPL", "MSFT"})

	if !b.Apply(progressFrame("warren_buffett", "AAPL", models.StatusInProgress)) {
		t.Fatalf("in-progress frame should change the board")
	}
	c, _ := b.Cell("warren_buffett", "AAPL")
	if c.Status != models.StatusInProgress {
		t.Fatalf("unexpected status %s", c.Status)
	}
	// A started cell earns half credit: 0.5 of 2 cells.
	if b.Percent() != 25 {
		t.Fatalf("expected 25 percent after start, got %d", b.Percent())
	}

	b.Apply(progressFrame("warren_buffett", "AAPL", models.StatusComplete))
	if b.Percent() != 50 {
		t.Fatalf("expected 50 percent, got %d", b.Percent())
	}
}

func TestBoardTerminalCellsIgnoreLaterFrames(t *testing.T) {
	b := NewBoard([]string{"warren_buffett"}, []string{"AAPL"})

	b.Apply(progressFrame("warren_buffett", "AAPL", models.StatusComplete))
	frame := progressFrame("warren_buffett", "AAPL", models.StatusInProgress)
	frame.Message = "should not land"
	b.Apply(frame)

	c, _ := b.Cell("warren_buffett", "AAPL")
	if c.Status != models.StatusComplete || c.Message == "should not land" {
		t.Fatalf("terminal cell regressed: %+v", c)
	}
}

func TestBoardErrorOverridesComplete(t *testing.T) {
	b := NewBoard([]string{"warren_buffett"}, []string{"AAPL"})

	b.Apply(progressFrame("warren_buffett", "AAPL", models.StatusComplete))
	if b.Percent() != 100 {
		t.Fatalf("expected 100 percent, got %d", b.Percent())
	}

	b.Apply(progressFrame("warren_buffett", "AAPL", models.StatusError))
	c, _ := b.Cell("warren_buffett", "AAPL")
	if c.Status != models.StatusError {
		t.Fatalf("error must override complete: %s", c.Status)
	}
	if b.Percent() != 100 {
		t.Fatalf("percent must not regress: %d", b.Percent())
	}

	// ERROR is final; nothing moves the cell afterwards.
	b.Apply(progressFrame("warren_buffett", "AAPL", models.StatusComplete))
	c, _ = b.Cell("warren_buffett", "AAPL")
	if c.Status != models.StatusError {
		t.Fatalf("error cell regressed: %s", c.Status)
	}
}

func TestBoardOrderingHeuristic(t *testing.T) {
	b := NewBoard([]string{"warren_buffett"}, []string{"AAPL", "MSFT", "NVDA", "GOOG"})

	// Naming the third ticker implies the first two are done: two full
	// credits plus the started cell's half, out of four.
	b.Apply(progressFrame("warren_buffett", "NVDA", models.StatusInProgress))
	if b.Counted() != 2 {
		t.Fatalf("expected 2 implied completions, got %d", b.Counted())
	}
	if b.Percent() != 63 {
		t.Fatalf("expected 63 percent, got %d", b.Percent())
	}

	// Implied cells keep their literal status; only the credit moves.
	c, _ := b.Cell("warren_buffett", "AAPL")
	if c.Status != models.StatusIdle {
		t.Fatalf("implied completion must not rewrite the cell: %s", c.Status)
	}

	// A late frame for an earlier ticker updates the cell but cannot add
	// credit it already earned, and the frontier does not move back.
	b.Apply(progressFrame("warren_buffett", "AAPL", models.StatusComplete))
	if b.Counted() != 2 {
		t.Fatalf("expected 2 counted cells, got %d", b.Counted())
	}
	if b.Percent() != 63 {
		t.Fatalf("late frame changed percent: %d", b.Percent())
	}
	c, _ = b.Cell("warren_buffett", "AAPL")
	if c.Status != models.StatusComplete {
		t.Fatalf("late frame must still update the cell: %s", c.Status)
	}
}

func TestBoardPercentRounding(t *testing.T) {
	b := NewBoard([]string{"warren_buffett"}, []string{"AAPL", "MSFT", "NVDA"})

	b.Apply(progressFrame("warren_buffett", "AAPL", models.StatusComplete))
	if b.Percent() != 33 {
		t.Fatalf("expected 33, got %d", b.Percent())
	}
	b.Apply(progressFrame("warren_buffett", "MSFT", models.StatusComplete))
	if b.Percent() != 67 {
		t.Fatalf("expected 67, got %d", b.Percent())
	}
}

func TestBoardIgnoresUnknownCellsAndIdleFrames(t *testing.T) {
	b := NewBoard([]string{"warren_buffett"}, []string{"AAPL"})

	if b.Apply(progressFrame("day_trader", "AAPL", models.StatusComplete)) {
		t.Fatalf("unknown agent must be ignored")
	}
	if b.Apply(progressFrame("warren_buffett", "TSLA", models.StatusComplete)) {
		t.Fatalf("unknown ticker must be ignored")
	}
	if b.Apply(progressFrame("warren_buffett", "AAPL", models.StatusIdle)) {
		t.Fatalf("idle frame must be ignored")
	}
	if b.Percent() != 0 {
		t.Fatalf("ignored frames must not count: %d", b.Percent())
	}
}

func TestBoardPercentMonotonic(t *testing.T) {
	b := NewBoard([]string{"warren_buffett", "risk_manager"}, []string{"AAPL", "MSFT", "NVDA"})

	frames := []*models.ProgressEvent{
		progressFrame("warren_buffett", "AAPL", models.StatusInProgress),
		progressFrame("risk_manager", "NVDA", models.StatusInProgress),
		progressFrame("warren_buffett", "AAPL", models.StatusComplete),
		progressFrame("warren_buffett", "MSFT", models.StatusError),
		progressFrame("risk_manager", "NVDA", models.StatusError),
		progressFrame("warren_buffett", "NVDA", models.StatusComplete),
		progressFrame("risk_manager", "AAPL", models.StatusComplete),
	}

	last := 0
	for i, f := range frames {
		b.Apply(f)
		if p := b.Percent(); p < last {
			t.Fatalf("percent regressed at frame %d: %d -> %d", i, last, p)
		} else {
			last = p
		}
	}
}
