package exchange

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies an exchange failure for retry decisions.
type ErrorKind string

const (
	// KindTransient covers network hiccups and exchange-internal
	// errors; retrying can succeed.
	KindTransient ErrorKind = "transient"
	// KindRateLimited means the exchange is pushing back; retrying
	// after backoff can succeed.
	KindRateLimited ErrorKind = "rate_limited"
	// KindAuth means credentials are wrong or lack permission.
	// Retrying the same request cannot succeed.
	KindAuth ErrorKind = "auth"
	// KindValidation means the request itself is malformed. Retrying
	// the same request cannot succeed.
	KindValidation ErrorKind = "validation"
	// KindInsufficientFunds means the account cannot cover the order.
	KindInsufficientFunds ErrorKind = "insufficient_funds"
)

// APIError is a classified exchange failure.
type APIError struct {
	Kind    ErrorKind
	Code    int64
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("exchange %s error (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("exchange %s error: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError builds a classified error wrapping the cause.
func NewAPIError(kind ErrorKind, code int64, message string, cause error) *APIError {
	return &APIError{Kind: kind, Code: code, Message: message, Err: cause}
}

// KindOf returns the classification of an error, with ok reporting
// whether it carries one.
func KindOf(err error) (ErrorKind, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind, true
	}
	return "", false
}

// IsRetryable reports whether retrying the failed operation can
// succeed. Auth and validation failures are terminal: replaying a
// rejected request only burns rate budget, so they are never retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if kind, ok := KindOf(err); ok {
		switch kind {
		case KindTransient, KindRateLimited:
			return true
		default:
			return false
		}
	}

	// Unclassified errors: fall back to transport-level signatures
	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "rate limit")
}
