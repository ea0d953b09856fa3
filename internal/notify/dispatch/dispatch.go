// Package dispatch provides Dispatcher implementations. The scheduler only
// records send outcomes; these adapters own the transport.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"paygate/internal/notify/service"
	"paygate/internal/platform/kafka"
)

// Kafka publishes dispatch requests to a topic consumed by the messaging
// gateway. The publish is synchronous so the scheduler can record a real
// sent/failed outcome per horizon.
type Kafka struct {
	producer *kafka.Producer
	topic    string
}

func NewKafka(producer *kafka.Producer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic}
}

func (k *Kafka) Dispatch(ctx context.Context, req service.DispatchRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal dispatch request: %w", err)
	}
	if err := k.producer.Publish(ctx, k.topic, req.Recipient, payload); err != nil {
		return fmt.Errorf("publish dispatch request: %w", err)
	}
	return nil
}

// Log writes dispatch requests to the log. Used when no broker is
// configured, typically in local development.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Dispatch(ctx context.Context, req service.DispatchRequest) error {
	l.logger.InfoContext(ctx, "reminder dispatch",
		slog.String("channel", req.Channel),
		slog.String("recipient", req.Recipient),
		slog.String("template_id", req.TemplateID),
	)
	return nil
}

// Memory collects dispatch requests for tests. Err, when set, fails every
// dispatch.
type Memory struct {
	mu       sync.Mutex
	requests []service.DispatchRequest

	Err error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Dispatch(_ context.Context, req service.DispatchRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.requests = append(m.requests, req)
	return nil
}

// Requests returns a copy of everything dispatched so far.
func (m *Memory) Requests() []service.DispatchRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]service.DispatchRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
