package transfer

import "fmt"

// ConnectError represents a failure to establish or position a session.
type ConnectError struct {
	Address string
	Message string
	Cause   error
}

func (e *ConnectError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("sftp %s: %s: %v", e.Address, e.Message, e.Cause)
	}
	return fmt.Sprintf("sftp %s: %s", e.Address, e.Message)
}

func (e *ConnectError) Unwrap() error {
	return e.Cause
}
