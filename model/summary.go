package model

import "time"

// Summary is the aggregate result of a run.
//	Total == len(Succeeded) + len(Failed) always holds. Targets that did not finish
//	before an interruption are listed in Unfinished only.
type Summary struct {
	RunID       string        `json:"runId" yaml:"run_id"`
	Total       int           `json:"total" yaml:"total"`
	Succeeded   []string      `json:"succeeded" yaml:"succeeded"`
	Failed      []string      `json:"failed" yaml:"failed"`
	Unfinished  []string      `json:"unfinished,omitempty" yaml:"unfinished,omitempty"`
	Duration    time.Duration `json:"duration" yaml:"duration"`
	Interrupted bool          `json:"interrupted,omitempty" yaml:"interrupted,omitempty"`
}

func (s Summary) SucceededCount() int {
	return len(s.Succeeded)
}

// OK is true when every dispatched target finished and succeeded
func (s Summary) OK() bool {
	return !s.Interrupted && len(s.Failed) == 0
}
