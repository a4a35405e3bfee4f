package model

import "time"

// Outcome is the result of one target's update attempt.
// It is created once by an executor and not modified afterwards.
type Outcome struct {
	Target     string
	Succeeded  bool
	ExitCode   int
	StartedAt  time.Time
	FinishedAt time.Time
	Stdout     []byte
	Stderr     []byte
	// Err is set when the transport could not be started at all
	Err error
}

// Elapsed returns the time spent in the invocation
func (o Outcome) Elapsed() time.Duration {
	if o.FinishedAt.Before(o.StartedAt) {
		return 0
	}
	return o.FinishedAt.Sub(o.StartedAt)
}
