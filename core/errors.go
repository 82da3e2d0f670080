package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by operations that require an active
	// session when none is established.
	ErrNotConnected = errors.New("no active session")
	// ErrAlreadyConnected is returned by [Controller.Connect] when a
	// session is already established or being established.
	ErrAlreadyConnected = errors.New("session already active")
)

// TransportError wraps a failure reported by the underlying transport while
// a session was active.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
