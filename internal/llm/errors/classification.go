package errors

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// TypeForStatus maps an HTTP status code to an ErrorType.
func TypeForStatus(code int) ErrorType {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case code == http.StatusUnauthorized:
		return ErrorTypeAuth
	case code == http.StatusForbidden:
		return ErrorTypePermission
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrorTypeTimeout
	case code >= 500:
		return ErrorTypeProvider
	case code >= 400:
		return ErrorTypeValidation
	default:
		return ErrorTypeUnknown
	}
}

// Classify returns the ErrorType of err. Typed errors are inspected first,
// then sentinels and context errors, then network errors, then message
// patterns for untyped provider failures.
func Classify(err error) ErrorType {
	if err == nil {
		return ""
	}

	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Type
	}
	var rateLimitErr *RateLimitError
	if errors.As(err, &rateLimitErr) {
		return ErrorTypeRateLimit
	}

	switch {
	case errors.Is(err, context.Canceled):
		return ErrorTypeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	case errors.Is(err, ErrRateLimitExceeded):
		return ErrorTypeRateLimit
	case errors.Is(err, ErrProviderUnavailable):
		return ErrorTypeProvider
	case errors.Is(err, ErrMissingCredential):
		return ErrorTypeAuth
	case errors.Is(err, ErrEmptyResponse):
		return ErrorTypeContent
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrorTypeTimeout
		}
		return ErrorTypeNetwork
	}

	return classifyMessage(err.Error())
}

func classifyMessage(msg string) ErrorType {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "rate limit"):
		return ErrorTypeRateLimit
	case strings.Contains(msg, "quota"):
		return ErrorTypeQuota
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host"):
		return ErrorTypeNetwork
	case strings.Contains(msg, "unavailable") || strings.Contains(msg, "overloaded"):
		return ErrorTypeProvider
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return ErrorTypeTimeout
	default:
		return ErrorTypeUnknown
	}
}

// IsRetryableError reports whether retrying err could succeed.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.IsRetryable()
	}
	switch Classify(err) {
	case ErrorTypeTimeout, ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider:
		// A deadline on the caller's own context is not worth retrying.
		return !errors.Is(err, context.DeadlineExceeded)
	default:
		return false
	}
}
