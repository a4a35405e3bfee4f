package model

const (
	// LocalTarget is the sentinel naming the local update path
	LocalTarget = "local"
)

// RunConfiguration is the resolved input of one invocation. It is never mutated during a run.
type RunConfiguration struct {
	Targets      []string `json:"targets" yaml:"targets"`
	LogDir       string   `json:"logDir,omitempty" yaml:"log_dir,omitempty"` // empty disables logging
	LocalUpdate  bool     `json:"localUpdate" yaml:"local_update"`
	RemoteUpdate bool     `json:"remoteUpdate" yaml:"remote_update"`
}

// RemoteTargets returns the targets to be dispatched to the orchestrator
//	nil when remote updates are disabled
func (c RunConfiguration) RemoteTargets() []string {
	if !c.RemoteUpdate {
		return nil
	}
	return c.Targets
}

// UniqueTargets drops repeated targets, keeping the first occurrence of each
func UniqueTargets(targets []string) []string {
	if targets == nil {
		return nil
	}
	seen := make(map[string]bool, len(targets))
	unique := make([]string, 0, len(targets))
	for _, t := range targets {
		if seen[t] {
			continue
		}
		seen[t] = true
		unique = append(unique, t)
	}
	return unique
}
