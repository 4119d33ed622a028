package tracker

import "fmt"

// RequestError represents a failed call to the issue tracker.
// StatusCode is zero when no response was received.
type RequestError struct {
	Op         string
	Key        string
	StatusCode int
	Cause      error
}

func (e *RequestError) Error() string {
	target := e.Op
	if e.Key != "" {
		target += " " + e.Key
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("jira %s (HTTP %d): %v", target, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("jira %s: %v", target, e.Cause)
}

func (e *RequestError) Unwrap() error {
	return e.Cause
}

// FieldError is returned when a ticket field is missing or malformed.
type FieldError struct {
	Key     string
	Field   string
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("ticket %s field %s: %s", e.Key, e.Field, e.Message)
}
