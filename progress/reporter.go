// Package progress renders and distributes live progress of a run
package progress

import "time"

// Reporter receives progress callbacks from concurrently running units.
//	Implementations must be safe for concurrent use, must not block for long
//	and must swallow their own errors.
type Reporter interface {
	TargetStarted(target string)
	TargetFinished(target string, succeeded bool, elapsed time.Duration)
	OverallProgress(completed, total int)
}

type nop struct{}

func (nop) TargetStarted(string)                      {}
func (nop) TargetFinished(string, bool, time.Duration) {}
func (nop) OverallProgress(int, int)                  {}

// Nop discards all callbacks
var Nop Reporter = nop{}

// Multi forwards every callback to each reporter, in order
type Multi []Reporter

func (m Multi) TargetStarted(target string) {
	for _, r := range m {
		r.TargetStarted(target)
	}
}

func (m Multi) TargetFinished(target string, succeeded bool, elapsed time.Duration) {
	for _, r := range m {
		r.TargetFinished(target, succeeded, elapsed)
	}
}

func (m Multi) OverallProgress(completed, total int) {
	for _, r := range m {
		r.OverallProgress(completed, total)
	}
}
