package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors matched through errors.Is on an *APIError.
var (
	ErrUnauthorized = errors.New("upstream: unauthorized")
	ErrNotFound     = errors.New("upstream: not found")
	ErrConflict     = errors.New("upstream: conflict")
)

// APIError is a non-2xx response of the booking API.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream %s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %s %s: %d", e.Method, e.Path, e.Status)
}

// Is maps status codes onto the sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}
