package protocol

import "fmt"

// Error reports a response that does not match what the command expects:
// an empty reply, a missing acknowledgment or a wrong number of values.
type Error struct {
	Command  string
	Response string
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("protocol: %s: %s", e.Command, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s (response %q)", msg, e.Response)
}

func (e *Error) Unwrap() error {
	return e.Err
}
