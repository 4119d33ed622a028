package notify

import "fmt"

// SubmissionError is returned when the relay cannot be reached or refuses
// the message.
type SubmissionError struct {
	Relay   string
	Message string
	Cause   error
}

func (e *SubmissionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("smtp %s: %s: %v", e.Relay, e.Message, e.Cause)
	}
	return fmt.Sprintf("smtp %s: %s", e.Relay, e.Message)
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// AddressError represents an invalid sender or recipient.
type AddressError struct {
	Field string
	Cause error
}

func (e *AddressError) Error() string {
	return fmt.Sprintf("invalid %s address: %v", e.Field, e.Cause)
}

func (e *AddressError) Unwrap() error {
	return e.Cause
}
