package llm

import (
	"context"
	"sync"

	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

// Call records one request seen by a FakeOracle.
type Call struct {
	Prompt  string
	Request transport.Request
}

// FakeOracle is a scripted Oracle for tests and dry runs. Respond decides
// the answer to each call; when nil, Responses are returned in order and the
// last one repeats.
type FakeOracle struct {
	Respond   func(ctx context.Context, call Call) (string, error)
	Responses []string

	mu    sync.Mutex
	calls []Call
}

var _ Oracle = (*FakeOracle)(nil)

// Generate implements Oracle.
func (f *FakeOracle) Generate(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	req := transport.Request{Operation: transport.OpGeneric, Prompt: prompt}
	for _, opt := range opts {
		opt(&req)
	}
	call := Call{Prompt: prompt, Request: req}

	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.Respond != nil {
		return f.Respond(ctx, call)
	}
	if len(f.Responses) == 0 {
		return "", nil
	}
	return f.Responses[min(idx, len(f.Responses)-1)], nil
}

// Calls returns the calls made so far.
func (f *FakeOracle) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
