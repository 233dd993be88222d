package usecase

import (
	"context"
	"sort"
	"time"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
	domrepo "github.com/bournewang/ai-hedge-fund/internal/domain/repository"
	"github.com/bournewang/ai-hedge-fund/pkg/logger"
)

// Reconciler folds completed run payloads into the dataset store. Each merge
// replaces the stored entries for exactly the tickers the payload mentions
// and leaves the rest of the source key's dataset alone.
type Reconciler struct {
	store     domrepo.DatasetStore
	publisher domrepo.ResultPublisher
	metrics   domrepo.Metrics
	log       *logger.Logger
}

// NewReconciler creates a reconciler. The publisher may be nil when result
// fan-out is disabled.
func NewReconciler(store domrepo.DatasetStore, publisher domrepo.ResultPublisher, metrics domrepo.Metrics, log *logger.Logger) *Reconciler {
	return &Reconciler{store: store, publisher: publisher, metrics: metrics, log: log}
}

// Merge builds per-ticker entries from a complete event, upserts them under
// the source key and returns the resulting dataset snapshot.
func (r *Reconciler) Merge(ctx context.Context, sourceKey string, ev *models.CompleteEvent) (models.SourceDataset, error) {
	started := time.Now()

	entries := BuildEntries(ev)
	meta := models.SourceMeta{
		RunID:       ev.RunID,
		TotalCost:   ev.TotalCost,
		TotalTokens: ev.TotalTokens,
		UpdatedAt:   time.Now().UTC(),
	}
	r.store.Upsert(sourceKey, meta, entries)
	r.metrics.RecordLatency("reconcile", time.Since(started).Seconds())

	ds, _ := r.store.Get(sourceKey)
	snapshot := *ds

	if r.publisher != nil {
		if err := r.publisher.PublishDataset(ctx, &snapshot); err != nil {
			r.log.Warn("dataset publish failed",
				logger.String("source_key", sourceKey),
				logger.Error(err))
		}
	}

	r.log.Info("dataset reconciled",
		logger.String("source_key", sourceKey),
		logger.String("run_id", ev.RunID),
		logger.Int("tickers", len(entries)),
		logger.Float64("total_cost", ev.TotalCost))
	return snapshot, nil
}

// BuildEntries flattens a complete event into sorted ticker entries. The
// ticker set is the union of decision keys and every ticker any analyst
// reported on; agent names keep their wire form.
func BuildEntries(ev *models.CompleteEvent) []models.TickerAnalysis {
	tickers := make(map[string]struct{}, len(ev.Decisions))
	for t := range ev.Decisions {
		tickers[t] = struct{}{}
	}
	for _, perTicker := range ev.AnalystSignals {
		for t := range perTicker {
			tickers[t] = struct{}{}
		}
	}

	ordered := make([]string, 0, len(tickers))
	for t := range tickers {
		ordered = append(ordered, t)
	}
	sort.Strings(ordered)

	agents := make([]string, 0, len(ev.AnalystSignals))
	for a := range ev.AnalystSignals {
		agents = append(agents, a)
	}
	sort.Strings(agents)

	entries := make([]models.TickerAnalysis, 0, len(ordered))
	for _, t := range ordered {
		entry := models.TickerAnalysis{Ticker: t}
		if d, ok := ev.Decisions[t]; ok {
			entry.Action = d.Action
			entry.Reasoning = d.Reasoning
			if d.Confidence != nil {
				c := *d.Confidence
				entry.Confidence = &c
			}
		}
		for _, a := range agents {
			sig, ok := ev.AnalystSignals[a][t]
			if !ok {
				continue
			}
			entry.AgentSignals = append(entry.AgentSignals, models.AgentSignalEntry{
				AgentName: a,
				Signal:    sig,
			})
		}
		entries = append(entries, entry)
	}
	return entries
}
