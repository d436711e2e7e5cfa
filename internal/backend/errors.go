package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized = errors.New("backend rejected credentials")
	ErrForbidden    = errors.New("backend denied access")
	ErrNotFound     = errors.New("backend resource not found")
	ErrUpstream     = errors.New("backend request failed")
)

// APIError is a non-2xx answer from the backend
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// Unwrap maps the status code onto the package sentinels. Only 401 means
// the session is gone; 403 leaves it usable.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrUpstream
	}
}
