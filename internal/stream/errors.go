package stream

import (
	"errors"
	"fmt"
)

// Sentinel causes carried inside *ConnectionError.
var (
	ErrLoginRejected = errors.New("stream: login rejected")
	ErrLoginTimeout  = errors.New("stream: timed out waiting for login acknowledgement")
)

// StateError reports an operation attempted in a state that does not allow
// it, such as starting a pipeline that was never built or sending on a
// closed connection.
type StateError struct {
	Op    string
	State State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("stream: cannot %s while %s", e.Op, e.State)
}

// ConnectionError reports a transport failure or a rejected login. The
// connection is Closed once one of these is returned.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("stream: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsClosed reports whether err means the stream has been closed, either by
// Close or by a failed connection.
func IsClosed(err error) bool {
	var stateErr *StateError
	if errors.As(err, &stateErr) && stateErr.State == Closed {
		return true
	}

	var connErr *ConnectionError

	return errors.As(err, &connErr)
}
