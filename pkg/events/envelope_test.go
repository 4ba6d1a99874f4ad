package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink()

	scored := Envelope{ID: "1", Type: "evaluation.question_scored", IdempotencyKey: "k1"}
	require.NoError(t, sink.Append(ctx, scored))
	require.NoError(t, sink.Append(ctx, Envelope{ID: "2", Type: "evaluation.question_scored", IdempotencyKey: "k1"}))
	require.NoError(t, sink.Append(ctx, Envelope{ID: "3", Type: "evaluation.report_rendered", IdempotencyKey: "k2"}))

	events := sink.Events()
	require.Len(t, events, 2, "duplicate idempotency key is dropped")
	assert.Equal(t, scored, events[0])
	assert.Len(t, sink.OfType("evaluation.report_rendered"), 1)
	assert.Empty(t, sink.OfType("other"))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, sink.Append(canceled, Envelope{IdempotencyKey: "k3"}), context.Canceled)
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := sink.Append(context.Background(), Envelope{
		Type:           "evaluation.report_rendered",
		IdempotencyKey: "k1",
		Payload:        json.RawMessage(`{"questions":2}`),
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "events", line["component"])
	assert.Equal(t, "evaluation.report_rendered", line["type"])
	assert.Equal(t, `{"questions":2}`, line["payload"])
}

func TestNoOpEventSink(t *testing.T) {
	assert.NoError(t, NewNoOpEventSink().Append(context.Background(), Envelope{}))
}
