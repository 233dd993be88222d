package repository

import (
	"context"
	"io"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
)

// AnalysisStream opens the backend's streaming run endpoint. The returned
// body carries the event wire protocol and honors ctx cancellation.
type AnalysisStream interface {
	Open(ctx context.Context, req *models.AnalysisRunRequest) (io.ReadCloser, error)
}

// DatasetStore holds reconciled results keyed by source key. Implementations
// are safe for concurrent use; reads return copies.
type DatasetStore interface {
	Upsert(sourceKey string, meta models.SourceMeta, entries []models.TickerAnalysis)
	Get(sourceKey string) (*models.SourceDataset, bool)
	Keys() []string
}

// ResultPublisher forwards reconciled datasets and run transitions to
// downstream consumers.
type ResultPublisher interface {
	PublishDataset(ctx context.Context, ds *models.SourceDataset) error
	PublishRunStatus(ctx context.Context, st *models.RunStatus) error
	Close() error
}

// AgentCatalog is the static registry of known agents.
type AgentCatalog interface {
	List() []models.AgentInfo
	Lookup(key string) (models.AgentInfo, bool)
	KeysByStyle(style string) []string
}

// Metrics records engine-level observations.
type Metrics interface {
	RecordFrame(eventType string)
	RecordFrameDropped(reason string)
	RecordProgress(sourceKey string, percent int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
