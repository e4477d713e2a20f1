package todoist

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound matches any *APIError with status 404.
var ErrNotFound = errors.New("todoist: not found")

// APIError is returned when the Todoist API answers with a non-2xx status.
type APIError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("todoist %s: %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("todoist %s: %d %s", e.Op, e.StatusCode, e.Message)
}

// Is reports whether target is ErrNotFound and this error is a 404.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsNotFound reports whether err is or wraps a 404 from the API.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsForbidden reports whether err is or wraps a 401 or 403 from the API.
func IsForbidden(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusForbidden || apiErr.StatusCode == http.StatusUnauthorized
}
