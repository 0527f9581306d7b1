// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrInvalidSignature indicates the webhook body did not match its X-Hub-Signature.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrMissingSignature indicates the webhook request carried no signature header.
	ErrMissingSignature = errors.New("missing webhook signature")

	// ErrUnsupportedObject indicates a webhook payload for an object other than instagram.
	ErrUnsupportedObject = errors.New("unsupported webhook object")

	// ErrProfileUnavailable indicates the Graph API returned no usable profile.
	ErrProfileUnavailable = errors.New("user profile unavailable")

	// ErrCircuitOpen indicates the Graph API circuit breaker rejected the call.
	ErrCircuitOpen = errors.New("graph api circuit open")

	// ErrAppURLUnknown indicates no public base URL is known for asset links.
	ErrAppURLUnknown = errors.New("app url unknown")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// APIError represents a non-2xx Graph API response.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string // Truncated response body from the platform
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("graph api error (endpoint=%s, status=%d): %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("graph api error (endpoint=%s, status=%d)", e.Endpoint, e.StatusCode)
}

// NewAPIError creates a new Graph API error.
func NewAPIError(endpoint string, statusCode int, body string) *APIError {
	return &APIError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Body:       body,
	}
}

// IsServerError reports whether the platform failed rather than rejected the call.
func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
