// Package progress tracks per-cell agent status for one run and derives the
// overall completion percent from it.
package progress

import (
	"math"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
)

type cellKey struct {
	agent  string
	ticker string
}

// Cell credit toward the percent. Weights only ever increase, so the percent
// is non-decreasing even when a later frame flips a cell to ERROR.
const (
	weightStarted = 0.5
	weightDone    = 1.0
)

// Board is the (agent, ticker) status matrix for one run. It is not
// self-locking: the owning controller serializes all access to it.
//
// A cell earns half credit as soon as work on it starts and full credit when
// it completes. The ordering heuristic fills in skipped cells: a frame naming
// the ticker at request position i means that agent is past every ticker
// before i, so those earn full credit even without explicit COMPLETE frames.
type Board struct {
	agents    []string
	tickers   []string
	agentIdx  map[string]int
	tickerIdx map[string]int
	cells     map[cellKey]*models.ProgressCell
	frontier  map[string]int
	weight    map[cellKey]float64
}

// NewBoard seeds every cell IDLE. Agent and ticker order is the request
// order; the completion heuristic depends on it.
func NewBoard(agents, tickers []string) *Board {
	b := &Board{
		agents:    append([]string(nil), agents...),
		tickers:   append([]string(nil), tickers...),
		agentIdx:  make(map[string]int, len(agents)),
		tickerIdx: make(map[string]int, len(tickers)),
		cells:     make(map[cellKey]*models.ProgressCell, len(agents)*len(tickers)),
		frontier:  make(map[string]int, len(agents)),
		weight:    make(map[cellKey]float64),
	}
	for i, tk := range tickers {
		b.tickerIdx[tk] = i
	}
	for i, ag := range agents {
		b.agentIdx[ag] = i
		b.frontier[ag] = -1
		for _, tk := range tickers {
			b.cells[cellKey{ag, tk}] = &models.ProgressCell{Agent: ag, Ticker: tk, Status: models.StatusIdle}
		}
	}
	return b
}

// Apply folds one progress frame into the board and reports whether anything
// changed. Frames for unknown cells are ignored, as are IDLE frames and
// frames that would regress a terminal cell. ERROR still overrides COMPLETE.
func (b *Board) Apply(ev *models.ProgressEvent) bool {
	if _, ok := b.agentIdx[ev.Agent]; !ok {
		return false
	}
	tIdx, ok := b.tickerIdx[ev.Ticker]
	if !ok {
		return false
	}
	if ev.Status == models.StatusIdle {
		return false
	}

	changed := false

	if tIdx > b.frontier[ev.Agent] {
		b.frontier[ev.Agent] = tIdx
	}
	for j := 0; j < b.frontier[ev.Agent]; j++ {
		if b.raise(cellKey{ev.Agent, b.tickers[j]}, weightDone) {
			changed = true
		}
	}

	key := cellKey{ev.Agent, ev.Ticker}
	cell := b.cells[key]
	switch {
	case cell.Status == models.StatusError:
		// terminal
	case cell.Status == models.StatusComplete && ev.Status != models.StatusError:
		// final unless an error supersedes it
	default:
		cell.Status = ev.Status
		cell.Message = ev.Message
		if ev.Cost != nil {
			cell.Cost = ev.Cost
		}
		if ev.Tokens != nil {
			cell.Tokens = ev.Tokens
		}
		if ev.Timestamp != "" {
			cell.UpdatedAt = ev.Timestamp
		}
		changed = true
	}

	switch cell.Status {
	case models.StatusInProgress:
		if b.raise(key, weightStarted) {
			changed = true
		}
	case models.StatusComplete:
		if b.raise(key, weightDone) {
			changed = true
		}
	}
	return changed
}

func (b *Board) raise(key cellKey, w float64) bool {
	if b.weight[key] >= w {
		return false
	}
	b.weight[key] = w
	return true
}

// Percent returns round(100 * credit / total).
func (b *Board) Percent() int {
	total := len(b.agents) * len(b.tickers)
	if total == 0 {
		return 0
	}
	var sum float64
	for _, w := range b.weight {
		sum += w
	}
	return int(math.Round(100 * sum / float64(total)))
}

// Counted returns how many cells earned full credit.
func (b *Board) Counted() int {
	n := 0
	for _, w := range b.weight {
		if w >= weightDone {
			n++
		}
	}
	return n
}

// Cell returns a copy of one cell.
func (b *Board) Cell(agent, ticker string) (models.ProgressCell, bool) {
	c, ok := b.cells[cellKey{agent, ticker}]
	if !ok {
		return models.ProgressCell{}, false
	}
	return *c, true
}

// Cells returns copies of all cells in request order, agents outer.
func (b *Board) Cells() []models.ProgressCell {
	out := make([]models.ProgressCell, 0, len(b.agents)*len(b.tickers))
	for _, ag := range b.agents {
		for _, tk := range b.tickers {
			out = append(out, *b.cells[cellKey{ag, tk}])
		}
	}
	return out
}
