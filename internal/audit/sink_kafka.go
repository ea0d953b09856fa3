package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"paygate/internal/platform/kafka"
)

// KafkaSink publishes events to the compliance event topic. Publishing is
// asynchronous and fail-open: a broker outage must never block an upload or
// a sweep.
type KafkaSink struct {
	producer *kafka.Producer
	topic    string
	logger   *slog.Logger
}

func NewKafkaSink(producer *kafka.Producer, topic string, logger *slog.Logger) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic, logger: logger}
}

func (s *KafkaSink) Write(ctx context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal audit event",
			slog.String("action", string(event.Action)),
			slog.String("error", err.Error()),
		)
		return
	}
	// Keyed by contractor so per-contractor ordering survives partitioning.
	s.producer.PublishAsync(ctx, s.topic, event.ContractorID.String(), payload)
}

// LogSink writes events to the structured log. It is the fallback sink when
// Kafka is not configured, and runs alongside Kafka in production.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Write(_ context.Context, event Event) {
	attrs := []any{
		slog.String("action", string(event.Action)),
		slog.String("contractor_id", event.ContractorID.String()),
	}
	if event.DocumentID != nil {
		attrs = append(attrs, slog.String("document_id", event.DocumentID.String()))
	}
	if event.InvoiceID != nil {
		attrs = append(attrs, slog.String("invoice_id", event.InvoiceID.String()))
	}
	if event.Actor != "" {
		attrs = append(attrs, slog.String("actor", event.Actor))
	}
	if event.Detail != "" {
		attrs = append(attrs, slog.String("detail", event.Detail))
	}
	s.logger.Info("audit event", attrs...)
}
