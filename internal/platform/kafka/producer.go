package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"paygate/internal/platform/config"
)

// Producer wraps a franz-go client for topic-keyed event publishing.
type Producer struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewProducer creates a producer from the provided configuration.
// Returns nil if no brokers are configured (Kafka disabled).
func NewProducer(cfg config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	return &Producer{client: client, logger: logger}, nil
}

// Publish sends one record and waits for broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, topic string, key string, value []byte) error {
	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

// PublishAsync sends one record without waiting. Delivery failures are
// logged; callers use this for fail-open event streams where losing an
// event must not fail the request.
func (p *Producer) PublishAsync(ctx context.Context, topic string, key string, value []byte) {
	record := &kgo.Record{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	}
	p.client.Produce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("kafka produce failed",
				slog.String("topic", r.Topic),
				slog.String("key", string(r.Key)),
				slog.String("error", err.Error()),
			)
		}
	})
}

// Close flushes pending records and closes the client.
func (p *Producer) Close() {
	if p == nil {
		return
	}
	p.client.Close()
}
