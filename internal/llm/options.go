package llm

import "github.com/Sujitsarkar6112/AI-Examiner/internal/llm/transport"

// noCacheKey marks a request that must bypass the response cache.
const noCacheKey = "-"

// CallOption customizes a single Generate call.
type CallOption func(*transport.Request)

// WithOperation tags the call with the pipeline stage issuing it.
func WithOperation(op transport.Operation) CallOption {
	return func(r *transport.Request) { r.Operation = op }
}

// WithJSONResponse asks the provider for JSON output.
func WithJSONResponse() CallOption {
	return func(r *transport.Request) { r.JSONResponse = true }
}

// WithSystemInstruction sets the system instruction for the call.
func WithSystemInstruction(s string) CallOption {
	return func(r *transport.Request) { r.SystemInstruction = s }
}

// WithAttachment sends binary content, such as a page image, with the prompt.
func WithAttachment(mimeType string, data []byte) CallOption {
	return func(r *transport.Request) {
		r.Attachments = append(r.Attachments, transport.Attachment{MIMEType: mimeType, Data: data})
	}
}

// WithTemperature overrides the configured sampling temperature.
func WithTemperature(t float32) CallOption {
	return func(r *transport.Request) { r.Temperature = &t }
}

// WithNoCache bypasses the response cache for this call.
func WithNoCache() CallOption {
	return func(r *transport.Request) { r.CacheKey = noCacheKey }
}

// WithNoRetry makes a single attempt; retryable failures are returned
// to the caller as they are.
func WithNoRetry() CallOption {
	return func(r *transport.Request) { r.NoRetry = true }
}

// WithCacheRefresh asks the provider again even when a response is cached,
// and replaces the cached entry with the new one.
func WithCacheRefresh() CallOption {
	return func(r *transport.Request) { r.CacheRefresh = true }
}
