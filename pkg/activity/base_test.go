package activity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sujitsarkar6112/AI-Examiner/pkg/events"
)

type flakySink struct {
	mu       sync.Mutex
	failures int
	calls    int
	got      []events.Envelope
}

func (f *flakySink) Append(_ context.Context, e events.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return errors.New("sink unavailable")
	}
	f.got = append(f.got, e)
	return nil
}

func TestGetWorkflowContextOutsideActivity(t *testing.T) {
	b := NewBaseActivities(nil)
	wfCtx := b.GetWorkflowContext(context.Background(), "eval-1")
	assert.Equal(t, WorkflowContext{
		WorkflowID: LocalWorkflowID,
		RunID:      "eval-1",
		ActivityID: LocalActivityID,
		Attempt:    1,
	}, wfCtx)
}

func TestEmitEventSafe(t *testing.T) {
	env := events.Envelope{Type: "evaluation.report_rendered", IdempotencyKey: "k1"}

	tests := []struct {
		name      string
		failures  int
		wantCalls int
		wantSaved int
	}{
		{name: "first attempt succeeds", failures: 0, wantCalls: 1, wantSaved: 1},
		{name: "retry succeeds", failures: 1, wantCalls: 2, wantSaved: 1},
		{name: "gives up after two attempts", failures: 5, wantCalls: 2, wantSaved: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &flakySink{failures: tt.failures}
			b := NewBaseActivities(sink)
			b.retryDelay = 0

			b.EmitEventSafe(context.Background(), env, "report rendered")
			assert.Equal(t, tt.wantCalls, sink.calls)
			assert.Len(t, sink.got, tt.wantSaved)
		})
	}

	t.Run("nil sink", func(t *testing.T) {
		b := NewBaseActivities(nil)
		assert.NotPanics(t, func() { b.EmitEventSafe(context.Background(), env, "noop") })
	})
}

func TestHelpersOutsideActivity(t *testing.T) {
	ctx := context.Background()
	assert.False(t, inActivity(ctx))
	assert.NotPanics(t, func() {
		SafeLog(ctx, "message", "k", "v")
		SafeLogError(ctx, "message", "k", "v")
		RecordHeartbeat(ctx, "progress")
	})
}
