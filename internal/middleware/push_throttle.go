package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
	domrepo "github.com/bournewang/ai-hedge-fund/internal/domain/repository"
	"github.com/bournewang/ai-hedge-fund/pkg/logger"
)

// Broadcaster is the minimal hub surface the throttle needs.
type Broadcaster interface {
	BroadcastJSON(v interface{}) error
	ConnectionCount() int
}

// SnapshotSource yields the current run state to broadcast.
type SnapshotSource interface {
	Status() models.RunStatus
	Progress() models.ProgressSnapshot
}

// RunUpdate is the frame pushed to watchers.
type RunUpdate struct {
	Type     string                  `json:"type"`
	Status   models.RunStatus        `json:"status"`
	Progress models.ProgressSnapshot `json:"progress"`
}

// PushThrottle sits between the run controller and the hub. Notify marks the
// state dirty; a background loop broadcasts the freshest snapshot at most
// once per interval, with a trailing flush so the final state always lands.
// Intermediate snapshots are coalesced, never queued.
type PushThrottle struct {
	hub      Broadcaster
	source   SnapshotSource
	metrics  domrepo.Metrics
	log      *logger.Logger
	interval time.Duration
	dirty    chan struct{}
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
}

// ThrottleOption configures the throttle.
type ThrottleOption func(*PushThrottle)

// WithInterval sets the minimum gap between broadcasts.
func WithInterval(d time.Duration) ThrottleOption {
	return func(p *PushThrottle) {
		if d > 0 {
			p.interval = d
		}
	}
}

// NewPushThrottle creates a throttle with a 100ms default interval.
func NewPushThrottle(hub Broadcaster, source SnapshotSource, metrics domrepo.Metrics, log *logger.Logger, opts ...ThrottleOption) *PushThrottle {
	p := &PushThrottle{
		hub:      hub,
		source:   source,
		metrics:  metrics,
		log:      log,
		interval: 100 * time.Millisecond,
		dirty:    make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Notify marks the run state changed. Safe to call from any goroutine and
// never blocks; bursts collapse into one pending flush.
func (p *PushThrottle) Notify() {
	select {
	case p.dirty <- struct{}{}:
	default:
	}
}

// Start launches the broadcast loop.
func (p *PushThrottle) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		for {
			select {
			case <-p.stopCh:
				return
			case <-ctx.Done():
				return
			case <-p.dirty:
				p.flush()
			}

			// Hold the line for one interval; anything arriving meanwhile
			// coalesces into a single trailing flush.
			timer := time.NewTimer(p.interval)
			select {
			case <-p.stopCh:
				timer.Stop()
				return
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			select {
			case <-p.dirty:
				p.flush()
			default:
			}
		}
	}()
}

// Stop halts the broadcast loop.
func (p *PushThrottle) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

func (p *PushThrottle) flush() {
	if p.hub.ConnectionCount() == 0 {
		return
	}
	start := time.Now()
	update := RunUpdate{
		Type:     "run_update",
		Status:   p.source.Status(),
		Progress: p.source.Progress(),
	}
	if err := p.hub.BroadcastJSON(update); err != nil {
		p.metrics.RecordError("push_flush")
		p.log.Warn("snapshot broadcast failed", logger.Error(err))
		return
	}
	p.metrics.RecordLatency("push_flush", time.Since(start).Seconds())
}
