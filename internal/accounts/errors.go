package accounts

import "fmt"

// NotFoundError is returned when no row carries the ticket key.
type NotFoundError struct {
	Key   string
	Sheet string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("ticket %s not found in sheet %s", e.Key, e.Sheet)
}

// LookupError represents a row that was found but could not be read.
type LookupError struct {
	Key     string
	Message string
	Cause   error
}

func (e *LookupError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("account lookup for %s failed: %s: %v", e.Key, e.Message, e.Cause)
	}
	return fmt.Sprintf("account lookup for %s failed: %s", e.Key, e.Message)
}

func (e *LookupError) Unwrap() error {
	return e.Cause
}
