// Package events provides the envelope and sinks used to publish grading
// events to downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Envelope wraps a domain event with routing and idempotency metadata.
type Envelope struct {
	// ID uniquely identifies this emission.
	ID string `json:"id"`

	// Type routes the event, for example "evaluation.question_scored".
	Type string `json:"type"`

	// Source names the emitting component.
	Source string `json:"source"`

	// Version is the payload schema version.
	Version string `json:"version"`

	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey is derived from the event content and is stable across
	// activity retries, so sinks can drop duplicates.
	IdempotencyKey string `json:"idempotency_key"`

	// WorkflowID and RunID identify the execution that produced the event.
	// Direct (non-workflow) evaluations use the evaluation ID as RunID.
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`

	Payload json.RawMessage `json:"payload"`
}

// EventSink receives events. Append is best effort: callers log failures and
// carry on, so implementations should return quickly and treat duplicate
// idempotency keys as no-ops.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event.
type NoOpEventSink struct{}

// Append implements EventSink.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error {
	return nil
}

// NewNoOpEventSink creates a sink that discards events.
func NewNoOpEventSink() EventSink {
	return &NoOpEventSink{}
}

// MemorySink keeps events in memory, dropping duplicates by idempotency key.
type MemorySink struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	events []Envelope
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{seen: make(map[string]struct{})}
}

// Append implements EventSink.
func (m *MemorySink) Append(ctx context.Context, envelope Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.seen[envelope.IdempotencyKey]; dup {
		return nil
	}
	m.seen[envelope.IdempotencyKey] = struct{}{}
	m.events = append(m.events, envelope)
	return nil
}

// Events returns the stored events in arrival order.
func (m *MemorySink) Events() []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.events)
}

// OfType returns the stored events of one type.
func (m *MemorySink) OfType(typ string) []Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Envelope
	for _, e := range m.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging through logger, or slog.Default when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("component", "events")}
}

// Append implements EventSink.
func (l *LogSink) Append(ctx context.Context, envelope Envelope) error {
	l.logger.InfoContext(ctx, "event",
		"type", envelope.Type,
		"source", envelope.Source,
		"idempotency_key", envelope.IdempotencyKey,
		"workflow_id", envelope.WorkflowID,
		"run_id", envelope.RunID,
		"payload", string(envelope.Payload))
	return nil
}
