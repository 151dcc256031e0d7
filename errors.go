package kalshi

import (
	"fmt"
)

// Exchange error codes that indicate the account cannot fund an order.
const (
	codeInsufficientFunds   = "insufficient_funds"
	codeInsufficientBalance = "insufficient_balance"
	codeOrderRejected       = "order_rejected"
)

// APIError is the base error for any API response with status >= 400.
// More specific errors embed it, sharing the status, message and code
// fields; match the concrete type with errors.As.
type APIError struct {
	StatusCode int
	Message    string
	Code       string // exchange error code, may be empty
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("kalshi: %d: %s (%s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("kalshi: %d: %s", e.StatusCode, e.Message)
}

// AuthenticationError is returned for 401/403 responses.
type AuthenticationError struct{ APIError }

// NotFoundError is returned for 404 responses.
type NotFoundError struct{ APIError }

// InsufficientFundsError is returned when the exchange rejects an
// operation for lack of balance.
type InsufficientFundsError struct{ APIError }

// OrderRejectedError is returned when the exchange rejects an order for
// a domain-level reason distinct from a generic API failure.
type OrderRejectedError struct{ APIError }

// RateLimitError is returned when 429 retries are exhausted. Method and
// Endpoint identify the request for diagnostics.
type RateLimitError struct {
	APIError
	Method   string
	Endpoint string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("kalshi: rate limit exhausted on %s %s: %s", e.Method, e.Endpoint, e.Message)
}

// ConfigError reports a local configuration problem detected before any
// network call: missing credentials, unreadable or non-RSA key files.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("kalshi: config: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("kalshi: config: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// mapAPIError builds the typed error for a non-retryable (or
// retry-exhausted) error response. This is the single place status codes
// are interpreted; accessors never re-inspect them.
func mapAPIError(status int, message, code string) error {
	base := APIError{StatusCode: status, Message: message, Code: code}
	switch {
	case status == 401 || status == 403:
		return &AuthenticationError{base}
	case status == 404:
		return &NotFoundError{base}
	case code == codeInsufficientFunds || code == codeInsufficientBalance:
		return &InsufficientFundsError{base}
	case code == codeOrderRejected:
		return &OrderRejectedError{base}
	default:
		return &base
	}
}
