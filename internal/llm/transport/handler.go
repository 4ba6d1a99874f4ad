// Package transport defines the request pipeline shared by every oracle call.
//
// A call is a Request flowing through a chain of Middleware down to a core
// Handler that talks to the provider. Cross-cutting concerns such as
// retries, rate limiting, caching and logging are middleware so that callers
// only ever see prompt in, text out.
package transport

import (
	"context"
	"time"
)

// Operation names the pipeline stage issuing a call. It scopes cache keys
// and shows up in logs.
type Operation string

// Oracle operations issued by the grading pipeline.
const (
	OpAlignment  Operation = "alignment"
	OpOpinion    Operation = "opinion"
	OpConsensus  Operation = "consensus"
	OpExtraction Operation = "extraction"
	OpGeneric    Operation = "generic"
)

// Attachment is binary content sent alongside the prompt, such as a page
// image for text extraction.
type Attachment struct {
	MIMEType string
	Data     []byte
}

// Request is one oracle call.
type Request struct {
	Operation         Operation
	Model             string
	SystemInstruction string
	Prompt            string
	Attachments       []Attachment

	// JSONResponse asks the provider for a JSON MIME response when it
	// supports structured output. Callers still parse defensively.
	JSONResponse bool

	// Temperature overrides the provider default when non-nil.
	Temperature *float32

	// Timeout bounds a single provider round trip. Zero means no limit
	// beyond the caller's context.
	Timeout time.Duration

	// CacheKey identifies semantically identical requests. Empty disables
	// response caching for this call.
	CacheKey string

	// CacheRefresh skips the cache lookup but still stores a usable
	// response, replacing whatever was cached under CacheKey.
	CacheRefresh bool

	// NoRetry limits the call to a single attempt. Callers that recover
	// from failures themselves set it.
	NoRetry bool
}

// Usage reports token consumption and latency for one call.
type Usage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
	LatencyMs        int64 `json:"latency_ms"`
}

// Response is the provider's answer to a Request.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason"`
	Usage        Usage  `json:"usage"`
	Cached       bool   `json:"-"`
}

// Handler processes oracle requests through a composable middleware pipeline.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler.
// Middleware executes in the order provided with the first middleware
// outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		h = middlewares[i](h)
	}
	return h
}

// WithTimeout applies req.Timeout to ctx. The returned cancel func must
// always be called.
func WithTimeout(ctx context.Context, req *Request) (context.Context, context.CancelFunc) {
	if req.Timeout > 0 {
		return context.WithTimeout(ctx, req.Timeout)
	}
	return ctx, func() {}
}
