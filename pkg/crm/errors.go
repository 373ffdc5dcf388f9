package crm

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is returned for every failed CRM call. Status is 0 when the request
// never produced an HTTP response (dial, TLS, timeout, decode of a 2xx body).
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("crm: %s", e.Message)
	}
	return fmt.Sprintf("crm: status %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure looks transient: transport errors,
// throttling and upstream 5xx.
func (e *Error) Retryable() bool {
	return e.Status == 0 || e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// IsNotFound reports whether err is a CRM 404.
func IsNotFound(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Status == http.StatusNotFound
}

// apiError is the error envelope the CRM returns on non-2xx responses.
type apiError struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	Category      string `json:"category"`
	CorrelationID string `json:"correlationId"`
}
