package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	llmerrors "github.com/Sujitsarkar6112/AI-Examiner/internal/llm/errors"
	"github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"
)

// ContentTruncationLimit is the number of response characters logged before
// truncation.
const ContentTruncationLimit = 200

// LoggingMiddleware logs the lifecycle of each oracle call.
type LoggingMiddleware struct {
	logger        *slog.Logger
	redactPrompts bool
	now           func() time.Time
}

// NewLoggingMiddleware creates logging middleware. With redactPrompts set
// only prompt and response lengths are logged.
func NewLoggingMiddleware(logger *slog.Logger, redactPrompts bool) transport.Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	lm := &LoggingMiddleware{
		logger:        logger.With("component", "oracle"),
		redactPrompts: redactPrompts,
		now:           time.Now,
	}
	return lm.Middleware
}

// Middleware wraps next with request and outcome logging.
func (m *LoggingMiddleware) Middleware(next transport.Handler) transport.Handler {
	return transport.HandlerFunc(func(ctx context.Context, req *transport.Request) (*transport.Response, error) {
		requestID := uuid.NewString()
		m.logger.DebugContext(ctx, "oracle request started",
			"request_id", requestID,
			"operation", req.Operation,
			"model", req.Model,
			"prompt_length", len(req.Prompt),
			"attachments", len(req.Attachments),
			"json_response", req.JSONResponse)

		start := m.now()
		resp, err := next.Handle(ctx, req)
		duration := m.now().Sub(start)

		if err != nil {
			m.logger.WarnContext(ctx, "oracle request failed",
				"request_id", requestID,
				"operation", req.Operation,
				"duration_ms", duration.Milliseconds(),
				"error_type", llmerrors.Classify(err),
				"error", err)
			return nil, err
		}

		fields := []any{
			"request_id", requestID,
			"operation", req.Operation,
			"model", resp.Model,
			"duration_ms", duration.Milliseconds(),
			"cached", resp.Cached,
			"finish_reason", resp.FinishReason,
			"total_tokens", resp.Usage.TotalTokens,
		}
		if m.redactPrompts {
			fields = append(fields, "response_length", len(resp.Content))
		} else {
			fields = append(fields, "response_preview", preview(resp.Content))
		}
		m.logger.DebugContext(ctx, "oracle request completed", fields...)
		return resp, nil
	})
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= ContentTruncationLimit {
		return s
	}
	return string(r[:ContentTruncationLimit]) + "..."
}
