package sheetapi

import (
	"fmt"
	"net/http"
)

// Error is a failed sheet service call.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	RequestID  string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sheet service: %s (%s, status=%d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("sheet service: status=%d %s", e.StatusCode, e.Message)
}

// Transient reports whether the call is worth repeating: rate limiting and
// server-side failures are, everything else is not.
func (e *Error) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
