package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
	domrepo "github.com/bournewang/ai-hedge-fund/internal/domain/repository"
	"github.com/bournewang/ai-hedge-fund/internal/service/progress"
	"github.com/bournewang/ai-hedge-fund/internal/service/registry"
	"github.com/bournewang/ai-hedge-fund/internal/service/sse"
	"github.com/bournewang/ai-hedge-fund/pkg/logger"
	"github.com/bournewang/ai-hedge-fund/pkg/util"
)

var (
	// ErrNoTickers rejects a run request with an empty ticker list.
	ErrNoTickers = errors.New("at least one ticker is required")
	// ErrNoAgents rejects a run request with an empty agent list.
	ErrNoAgents = errors.New("at least one agent is required")
	// ErrRunInProgress rejects a second concurrent run on the same controller.
	ErrRunInProgress = errors.New("a run is already in progress")
)

// RunController drives one streaming analysis run at a time: it opens the
// backend stream, feeds frames through the progress board and the
// reconciler, and exposes immutable snapshots of the run state.
//
// Phase follows IDLE -> RUNNING -> COMPLETE or ERROR. Cancellation stops
// frame consumption but does not move the phase; a transport failure before
// the terminal frame synthesizes an error event instead.
type RunController struct {
	stream     domrepo.AnalysisStream
	reconciler *Reconciler
	metrics    domrepo.Metrics
	log        *logger.Logger
	sourceKey  string
	notify     func()

	mu        sync.Mutex
	phase     models.RunPhase
	runID     string
	agents    []string
	tickers   []string
	board     *progress.Board
	lastError *models.ErrorEvent
	totalCost float64
	totalTok  int64
	startedAt time.Time
	updatedAt time.Time
	version   uint64
	active    bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// RunOption configures a controller.
type RunOption func(*RunController)

// WithSourceKey sets the dataset key reconciled results are stored under.
func WithSourceKey(key string) RunOption {
	return func(c *RunController) { c.sourceKey = key }
}

// WithNotify registers a hook invoked after every observable state change.
func WithNotify(fn func()) RunOption {
	return func(c *RunController) { c.notify = fn }
}

// SetNotify registers the notify hook after construction. Call it before the
// first Start; it lets the controller and the push throttle be built in
// either order.
func (c *RunController) SetNotify(fn func()) { c.notify = fn }

// NewRunController creates an idle controller writing under the "manual"
// source key unless overridden.
func NewRunController(stream domrepo.AnalysisStream, reconciler *Reconciler, metrics domrepo.Metrics, log *logger.Logger, opts ...RunOption) *RunController {
	c := &RunController{
		stream:     stream,
		reconciler: reconciler,
		metrics:    metrics,
		log:        log,
		sourceKey:  "manual",
		phase:      models.RunIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start validates the request and launches the consuming goroutine. It
// returns immediately; progress is observed through Status and Progress.
//
// Agent keys are tracked internally in their bare form, so callers may mix
// bare and wire-suffixed keys. The backend request keeps the caller's keys.
func (c *RunController) Start(req *models.AnalysisRunRequest) error {
	tickers := util.NormalizeTickers(req.Tickers)
	agents := util.DedupeStrings(req.SelectedAgents)
	if len(tickers) == 0 {
		return ErrNoTickers
	}
	if len(agents) == 0 {
		return ErrNoAgents
	}

	run := *req
	run.Tickers = tickers
	run.SelectedAgents = agents
	boardKeys := registry.NormalizeKeys(agents)

	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return ErrRunInProgress
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.active = true
	c.cancel = cancel
	c.done = make(chan struct{})
	c.phase = models.RunRunning
	c.runID = ""
	c.agents = boardKeys
	c.tickers = tickers
	c.board = progress.NewBoard(boardKeys, tickers)
	c.lastError = nil
	c.totalCost = 0
	c.totalTok = 0
	c.startedAt = time.Now().UTC()
	c.updatedAt = c.startedAt
	c.version++
	c.mu.Unlock()

	c.log.Info("run started",
		logger.String("source_key", c.sourceKey),
		logger.Strings("tickers", tickers),
		logger.Int("agents", len(boardKeys)))
	c.changed()

	go c.consume(ctx, &run)
	return nil
}

// Cancel stops the active run's frame consumption. The phase is left where
// it was; cancelling an idle controller reports false.
func (c *RunController) Cancel() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.active {
		return false
	}
	c.cancel()
	return true
}

// Active reports whether a consuming goroutine is alive. This is not the
// same as phase RUNNING: a cancelled run keeps its phase but goes inactive.
func (c *RunController) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Done returns a channel closed when the current run's consumption stops.
// An idle controller returns an already closed channel.
func (c *RunController) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return c.done
}

// SourceKey returns the dataset key this controller writes under.
func (c *RunController) SourceKey() string { return c.sourceKey }

// Status returns an immutable run snapshot.
func (c *RunController) Status() models.RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := models.RunStatus{
		Phase:       c.phase,
		RunID:       c.runID,
		SourceKey:   c.sourceKey,
		Tickers:     append([]string(nil), c.tickers...),
		Agents:      append([]string(nil), c.agents...),
		Percent:     c.percentLocked(),
		TotalCost:   c.totalCost,
		TotalTokens: c.totalTok,
		StartedAt:   c.startedAt,
		UpdatedAt:   c.updatedAt,
		Version:     c.version,
	}
	if c.lastError != nil {
		ev := *c.lastError
		ev.Details = append([]byte(nil), c.lastError.Details...)
		st.Error = &ev
	}
	return st
}

// Progress returns the full cell matrix with the derived percent.
func (c *RunController) Progress() models.ProgressSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := models.ProgressSnapshot{Percent: c.percentLocked(), Version: c.version}
	if c.board != nil {
		snap.Cells = c.board.Cells()
	}
	return snap
}

// Cell returns one progress cell, if the pair belongs to the current run.
// The agent may be given in bare or wire form.
func (c *RunController) Cell(agent, ticker string) (models.ProgressCell, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.board == nil {
		return models.ProgressCell{}, false
	}
	return c.board.Cell(registry.Normalize(agent), ticker)
}

func (c *RunController) percentLocked() int {
	if c.phase == models.RunComplete {
		return 100
	}
	if c.board == nil {
		return 0
	}
	return c.board.Percent()
}

func (c *RunController) changed() {
	if c.notify != nil {
		c.notify()
	}
}

func (c *RunController) consume(ctx context.Context, req *models.AnalysisRunRequest) {
	defer c.finish()

	body, err := c.stream.Open(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		c.metrics.RecordError("transport")
		c.fail("backend request failed: " + err.Error())
		return
	}
	defer body.Close()

	scanner := sse.NewFrameScanner(body)
	scanner.OnDrop(func(raw sse.RawFrame, err error) {
		c.metrics.RecordFrameDropped("decode")
		c.log.Warn("dropped stream frame",
			logger.String("event", raw.Event),
			logger.Error(err))
	})

	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		if terminal := c.apply(ctx, scanner.Frame()); terminal {
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	if err := scanner.Err(); err != nil {
		c.metrics.RecordError("transport")
		c.fail("stream aborted: " + err.Error())
		return
	}
	// Clean EOF without a terminal frame still means the run never finished.
	c.metrics.RecordError("transport")
	c.fail("stream ended before a terminal event")
}

// apply dispatches one frame. It returns true once the run reached a
// terminal phase and consumption should stop.
func (c *RunController) apply(ctx context.Context, frame models.Frame) bool {
	c.metrics.RecordFrame(string(frame.FrameType()))

	switch ev := frame.(type) {
	case *models.StartEvent:
		c.applyStart(ev)
	case *models.ProgressEvent:
		c.applyProgress(ev)
	case *models.CompleteEvent:
		return c.applyComplete(ctx, ev)
	case *models.ErrorEvent:
		c.metrics.RecordError("application")
		c.applyError(ev)
		return true
	case *models.UnknownEvent:
		c.log.Debug("ignoring unknown event", logger.String("event", ev.Event))
	}
	return false
}

func (c *RunController) applyStart(ev *models.StartEvent) {
	c.mu.Lock()
	c.runID = ev.RunID
	if t, ok := util.ParseTime(ev.Timestamp); ok {
		c.startedAt = t
	}
	c.touchLocked()
	c.mu.Unlock()
	c.changed()
}

func (c *RunController) applyProgress(ev *models.ProgressEvent) {
	// Frames key agents in wire form; the board is keyed by the bare form.
	cell := *ev
	cell.Agent = registry.Normalize(ev.Agent)

	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	if _, ok := c.board.Cell(cell.Agent, cell.Ticker); !ok {
		c.mu.Unlock()
		c.metrics.RecordFrameDropped("unknown_cell")
		c.log.Warn("progress frame for unknown cell",
			logger.String("agent", ev.Agent),
			logger.String("ticker", ev.Ticker))
		return
	}
	if !c.board.Apply(&cell) {
		c.mu.Unlock()
		return
	}
	c.touchLocked()
	percent := c.board.Percent()
	c.mu.Unlock()

	c.metrics.RecordProgress(c.sourceKey, percent)
	c.changed()
}

func (c *RunController) applyComplete(ctx context.Context, ev *models.CompleteEvent) bool {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()

	// Merge before flipping the phase so a COMPLETE status never races
	// ahead of its dataset.
	if _, err := c.reconciler.Merge(ctx, c.sourceKey, ev); err != nil {
		c.metrics.RecordError("reconcile")
		c.log.Error("reconcile failed",
			logger.String("source_key", c.sourceKey),
			logger.Error(err))
	}

	c.mu.Lock()
	c.phase = models.RunComplete
	c.totalCost = ev.TotalCost
	c.totalTok = ev.TotalTokens
	if ev.RunID != "" {
		c.runID = ev.RunID
	}
	c.touchLocked()
	c.mu.Unlock()

	c.metrics.RecordProgress(c.sourceKey, 100)
	c.log.Info("run complete",
		logger.String("source_key", c.sourceKey),
		logger.String("run_id", ev.RunID),
		logger.Int64("total_tokens", ev.TotalTokens))
	c.changed()
	return true
}

func (c *RunController) applyError(ev *models.ErrorEvent) {
	c.mu.Lock()
	if c.phase.Terminal() {
		c.mu.Unlock()
		return
	}
	c.phase = models.RunError
	cp := *ev
	cp.Details = append([]byte(nil), ev.Details...)
	c.lastError = &cp
	if ev.RunID != "" {
		c.runID = ev.RunID
	}
	c.touchLocked()
	c.mu.Unlock()

	c.log.Error("run failed", logger.String("message", ev.Message))
	c.changed()
}

// fail records a synthetic error event for failures below the protocol, such
// as refused connections or truncated streams. Applied merges stay intact.
func (c *RunController) fail(msg string) {
	c.applyError(&models.ErrorEvent{
		Message:   msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (c *RunController) touchLocked() {
	c.updatedAt = time.Now().UTC()
	c.version++
}

func (c *RunController) finish() {
	c.mu.Lock()
	c.active = false
	c.cancel()
	close(c.done)
	c.mu.Unlock()
	c.changed()
}
