package client

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts for a transient
	// failure are used up.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled while
	// waiting between attempts.
	ErrContextCancelled = errors.New("context cancelled")
)

// ErrorClass represents a classification of fetch failures.
type ErrorClass string

const (
	// ErrorClassAuth represents 401/403 responses. Never retried.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassClient represents other 4xx responses (malformed request).
	// Never retried.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx responses. Retried with backoff.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 responses. Retried after a fixed
	// cooldown, without an attempt bound.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents connectivity and timeout failures.
	// Retried with backoff.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassParse represents a malformed response envelope or an invalid
	// continuation reference. Never retried.
	ErrorClassParse ErrorClass = "parse"
)

// APIError represents a failed page fetch with its classification.
type APIError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("api %s error (status %d): %s: %v",
			e.ErrorClass, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("api %s error (status %d): %s",
		e.ErrorClass, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Classify returns the error class of err, or the empty class for nil.
// Errors without an APIError in their chain are treated as network failures.
func Classify(err error) ErrorClass {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorClass
	}
	return ErrorClassNetwork
}

// classifyStatus categorizes a non-2xx HTTP status code.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrorClassAuth
	case statusCode == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// shouldRetry reports whether an error class is transient.
// Rate limits are handled separately via the cooldown path.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassServer, ErrorClassNetwork, ErrorClassRateLimit:
		return true
	default:
		return false
	}
}
