package planapi

import (
	"fmt"
	"net/http"
)

// Error is a failed plan service call.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("plan service: %s (%s, status=%d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("plan service: status=%d %s", e.StatusCode, e.Message)
}

// Transient reports whether the call is worth repeating.
func (e *Error) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
