package activity

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	llmerrors "github.com/Sujitsarkar6112/AI-Examiner/internal/llm/errors"
)

// ErrActivityValidation is returned when activity input fails validation.
// It is never retried.
var ErrActivityValidation = errors.New("activity input validation failed")

// Error types attached to Temporal application errors.
const (
	ErrorValidation = "Validation"
	ErrorProvider   = "Provider"
	ErrorStorage    = "Storage"
	ErrorCanceled   = "Canceled"
)

// nonRetryable wraps cause as a Temporal application error that the retry
// policy will not retry.
func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

// retryable wraps cause as a Temporal application error eligible for retry.
func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}

// classifyOracleError picks retry behavior from the oracle error taxonomy.
func classifyOracleError(cause error, msg string) error {
	if llmerrors.IsRetryableError(cause) {
		return retryable(ErrorProvider, cause, msg)
	}
	return nonRetryable(ErrorProvider, cause, msg)
}
