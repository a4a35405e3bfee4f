package executor

import "fmt"

// SpawnError signals that a command could not be started (e.g. binary missing)
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("error starting %s: %s", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// TransportError signals that the update mechanism for a target could not be invoked at all.
//	It is distinct from a command that ran and exited with a non-zero status.
type TransportError struct {
	Target string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error for %s: %s", e.Target, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
