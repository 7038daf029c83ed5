package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnavailable marks connectivity failures: transport errors and timeouts.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrNotConnected means the wearable integration was never authorized.
	ErrNotConnected = errors.New("wearable integration not connected")
	// ErrSessionExpired means the backend rejected our credentials.
	ErrSessionExpired = errors.New("session expired")
)

// ErrorCategory determines whether a failed call is worth retrying.
type ErrorCategory int

const (
	Recoverable ErrorCategory = iota
	Irrecoverable
)

func (c ErrorCategory) String() string {
	switch c {
	case Recoverable:
		return "Recoverable"
	case Irrecoverable:
		return "Irrecoverable"
	default:
		return fmt.Sprintf("Unknown(%d)", int(c))
	}
}

// HTTPError is a non-success response from the backend.
type HTTPError struct {
	Operation  string
	StatusCode int
	Body       string
	Category   ErrorCategory
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("[%s] %s failed: HTTP %d: %s", e.Category, e.Operation, e.StatusCode, e.Body)
}

func newHTTPError(op string, status int, body string) *HTTPError {
	return &HTTPError{
		Operation:  op,
		StatusCode: status,
		Body:       body,
		Category:   categoryFor(status),
	}
}

// categoryFor treats 4xx as permanent except 408 and 429.
func categoryFor(status int) ErrorCategory {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return Recoverable
	case status >= 400 && status < 500:
		return Irrecoverable
	default:
		return Recoverable
	}
}

func networkError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

// IsRecoverable reports whether err is transient and the call may be retried.
func IsRecoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSessionExpired) || errors.Is(err, ErrNotConnected) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Category == Recoverable
	}
	return errors.Is(err, ErrUnavailable)
}
