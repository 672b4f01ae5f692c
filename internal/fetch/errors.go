package fetch

import (
	"errors"
	"fmt"
	"net"
)

// ErrTimeout indicates the request exceeded its deadline.
type ErrTimeout struct {
	Err error
}

func (e ErrTimeout) Error() string { return fmt.Sprintf("timeout: %v", e.Err) }

func (e ErrTimeout) Unwrap() error { return e.Err }

// ErrConnection indicates a network connectivity failure.
type ErrConnection struct {
	Err error
}

func (e ErrConnection) Error() string { return fmt.Sprintf("connection: %v", e.Err) }

func (e ErrConnection) Unwrap() error { return e.Err }

// ErrStatus indicates the server answered with a non-success status.
type ErrStatus struct {
	Code int
}

func (e ErrStatus) Error() string { return fmt.Sprintf("unexpected status code: %d", e.Code) }

// classify wraps a transport error into one of the typed categories.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	return ErrConnection{Err: err}
}
