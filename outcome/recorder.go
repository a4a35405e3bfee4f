// Package outcome persists the captured output of update attempts
package outcome

import (
	"fmt"
	"strings"

	"code.linksmart.eu/dt/pupdate/model"
)

// Recorder persists one target's outcome
type Recorder interface {
	Record(model.Outcome) error
}

// LogWriteError signals that the output of a target could not be persisted.
//	It never changes the verdict of that target.
type LogWriteError struct {
	Target string
	Sink   string
	Err    error
}

func (e *LogWriteError) Error() string {
	return fmt.Sprintf("error writing %s logs for %s: %s", e.Sink, e.Target, e.Err)
}

func (e *LogWriteError) Unwrap() error {
	return e.Err
}

type discard struct{}

func (discard) Record(model.Outcome) error { return nil }

// Discard is the recorder used when logging is disabled
var Discard Recorder = discard{}

// Multi records to all given recorders, continuing past failures
type Multi []Recorder

func (m Multi) Record(o model.Outcome) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(o); err != nil {
			errs = append(errs, err)
		}
	}
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	}
	return multiError(errs)
}

type multiError []error

func (m multiError) Error() string {
	s := make([]string, len(m))
	for i := range m {
		s[i] = m[i].Error()
	}
	return strings.Join(s, "; ")
}

func (m multiError) Unwrap() []error {
	return m
}
