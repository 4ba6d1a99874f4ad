package transport

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainOrder(t *testing.T) {
	var trace []string
	record := func(name string) Middleware {
		return func(next Handler) Handler {
			return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
				trace = append(trace, name+":in")
				resp, err := next.Handle(ctx, req)
				trace = append(trace, name+":out")
				return resp, err
			})
		}
	}
	core := HandlerFunc(func(context.Context, *Request) (*Response, error) {
		trace = append(trace, "core")
		return &Response{Content: "ok"}, nil
	})

	h := Chain(core, record("outer"), nil, record("inner"))
	resp, err := h.Handle(context.Background(), &Request{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, []string{"outer:in", "inner:in", "core", "inner:out", "outer:out"}, trace)
}

func TestWithTimeout(t *testing.T) {
	t.Run("zero timeout keeps the parent context", func(t *testing.T) {
		parent := context.Background()
		ctx, cancel := WithTimeout(parent, &Request{})
		defer cancel()
		_, ok := ctx.Deadline()
		assert.False(t, ok)
	})

	t.Run("positive timeout sets a deadline", func(t *testing.T) {
		ctx, cancel := WithTimeout(context.Background(), &Request{Timeout: time.Minute})
		defer cancel()
		_, ok := ctx.Deadline()
		assert.True(t, ok)
	})
}

func TestIdemKey(t *testing.T) {
	base := Request{Operation: OpOpinion, Model: "gemini", Prompt: "grade this"}

	t.Run("stable for equivalent requests", func(t *testing.T) {
		padded := base
		padded.Prompt = "  grade this\n"
		assert.Equal(t, IdemKey(&base), IdemKey(&padded))
	})

	t.Run("sensitive to content", func(t *testing.T) {
		variants := []Request{
			{Operation: OpConsensus, Model: "gemini", Prompt: "grade this"},
			{Operation: OpOpinion, Model: "other", Prompt: "grade this"},
			{Operation: OpOpinion, Model: "gemini", Prompt: "grade that"},
			{Operation: OpOpinion, Model: "gemini", Prompt: "grade this", JSONResponse: true},
			{Operation: OpOpinion, Model: "gemini", Prompt: "grade this",
				Attachments: []Attachment{{MIMEType: "image/png", Data: []byte{1}}}},
		}
		seen := map[string]bool{IdemKey(&base): true}
		for i := range variants {
			key := IdemKey(&variants[i])
			assert.False(t, seen[key], "variant %d collided", i)
			seen[key] = true
		}
	})

	t.Run("cache key embeds the operation", func(t *testing.T) {
		key := CacheKey(OpAlignment, IdemKey(&base))
		assert.True(t, strings.HasPrefix(key, "examiner:llm:alignment:"))
	})
}
