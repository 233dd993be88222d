package repository

import (
	"context"

	"github.com/bournewang/ai-hedge-fund/internal/domain/models"
	"github.com/bournewang/ai-hedge-fund/internal/domain/repository"
	pkgkafka "github.com/bournewang/ai-hedge-fund/pkg/kafka"
)

// KafkaResultPublisher fans reconciled datasets and run transitions out to
// Kafka so downstream consumers can index or alert on them.
type KafkaResultPublisher struct {
	producer     *pkgkafka.Producer
	datasetTopic string
	statusTopic  string
}

// NewKafkaResultPublisher creates the publisher.
func NewKafkaResultPublisher(producer *pkgkafka.Producer, datasetTopic, statusTopic string) repository.ResultPublisher {
	return &KafkaResultPublisher{
		producer:     producer,
		datasetTopic: datasetTopic,
		statusTopic:  statusTopic,
	}
}

// PublishDataset sends one reconciled dataset, keyed by source key so a
// compacted topic keeps only the latest slice per key.
func (p *KafkaResultPublisher) PublishDataset(ctx context.Context, ds *models.SourceDataset) error {
	return p.producer.Publish(ctx, p.datasetTopic, []byte(ds.SourceKey), ds)
}

// PublishRunStatus sends a run transition snapshot.
func (p *KafkaResultPublisher) PublishRunStatus(ctx context.Context, st *models.RunStatus) error {
	return p.producer.Publish(ctx, p.statusTopic, []byte(st.SourceKey), st)
}

// PublishMessage sends an arbitrary payload. The log collector uses this to
// ship diagnostic batches through the same producer.
func (p *KafkaResultPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}

// Close flushes and closes the underlying producer.
func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
