package audit

import (
	"context"
	"sync"

	"paygate/pkg/requestcontext"
)

// Sink receives audit events. Sinks must not fail the calling operation;
// delivery errors are the sink's problem to log or retry.
type Sink interface {
	Write(ctx context.Context, event Event)
}

// Publisher stamps and fans events out to its sinks.
type Publisher struct {
	sinks []Sink
}

func NewPublisher(sinks ...Sink) *Publisher {
	return &Publisher{sinks: sinks}
}

// Emit records one event. Timestamp and actor default from the request
// context when unset.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.Actor == "" {
		event.Actor = requestcontext.Actor(ctx)
	}
	for _, sink := range p.sinks {
		sink.Write(ctx, event)
	}
}

// Memory collects events for assertions in tests.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Write(_ context.Context, event Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns a snapshot of everything written so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ByAction filters the snapshot to one action.
func (m *Memory) ByAction(action Action) []Event {
	var out []Event
	for _, e := range m.Events() {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}
