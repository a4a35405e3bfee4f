package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"code.linksmart.eu/dt/pupdate/model"
	log "github.com/sirupsen/logrus"
)

var (
	DefaultRefreshCommand = []string{"sudo", "apt-get", "update"}
	DefaultUpgradeCommand = []string{"sudo", "apt-get", "upgrade", "-y"}
)

// Local updates the local system by running the refresh command followed by the upgrade command.
//	The upgrade is never attempted when the refresh fails.
type Local struct {
	runner CommandRunner
	steps  [][]string
	now    func() time.Time
}

// NewLocal returns the local executor. Empty commands fall back to the apt-get defaults.
func NewLocal(runner CommandRunner, refresh, upgrade []string) *Local {
	if len(refresh) == 0 {
		refresh = DefaultRefreshCommand
	}
	if len(upgrade) == 0 {
		upgrade = DefaultUpgradeCommand
	}
	return &Local{
		runner: runner,
		steps:  [][]string{refresh, upgrade},
		now:    time.Now,
	}
}

// Execute runs the steps sequentially and returns when one fails.
//	The outcome carries the concatenated output of every attempted step.
func (l *Local) Execute(ctx context.Context, target string) (model.Outcome, error) {
	o := model.Outcome{
		Target:    target,
		StartedAt: l.now(),
	}

	for _, step := range l.steps {
		log.WithField("target", target).Debugf("local: %s", strings.Join(step, " "))
		res, err := l.runner.Run(ctx, step[0], step[1:]...)
		o.Stdout = append(o.Stdout, res.Stdout...)
		o.Stderr = append(o.Stderr, res.Stderr...)
		o.ExitCode = res.ExitCode
		if err != nil {
			o.FinishedAt = l.now()
			o.ExitCode = -1
			o.Err = &TransportError{Target: target, Err: err}
			return o, o.Err
		}
		if !res.Success() {
			log.Printf("local: %s exited with status %d", strings.Join(step, " "), res.ExitCode)
			o.FinishedAt = l.now()
			return o, nil
		}
	}

	o.FinishedAt = l.now()
	o.Succeeded = true
	return o, nil
}

func (l *Local) String() string {
	parts := make([]string, len(l.steps))
	for i := range l.steps {
		parts[i] = strings.Join(l.steps[i], " ")
	}
	return fmt.Sprintf("local(%s)", strings.Join(parts, " && "))
}
