package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrDeleteNotAllowed is returned without contacting the server when a
// project is past the Received status.
var ErrDeleteNotAllowed = errors.New("only projects in Received status can be deleted")

// APIError represents an error from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error: %s", e.Message)
}

// ConnectionError represents a connection failure.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsUnauthorized reports whether err means the session is gone and the
// user has to log in again.
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsForbidden reports a role mismatch.
func IsForbidden(err error) bool {
	return statusOf(err) == http.StatusForbidden
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
