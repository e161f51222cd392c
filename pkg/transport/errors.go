package transport

import (
	"errors"
	"fmt"
)

// ErrInterrupted is returned by reads after Conn.Interrupt.
var ErrInterrupted = errors.New("read interrupted")

// ConnectionError means the server never accepted a connection.
type ConnectionError struct {
	Addr     string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s: failed after %d attempts: %v", e.Addr, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Error reports an unusable or closed socket during a send or read.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
