package executor

import (
	"context"
	"time"

	"code.linksmart.eu/dt/pupdate/model"
	log "github.com/sirupsen/logrus"
)

// Remote triggers the update command on a remote target through a Transport
type Remote struct {
	transport Transport
	command   string
	now       func() time.Time
}

func NewRemote(transport Transport, command string) *Remote {
	if command == "" {
		command = DefaultRemoteCommand
	}
	return &Remote{
		transport: transport,
		command:   command,
		now:       time.Now,
	}
}

func (r *Remote) Execute(ctx context.Context, target string) (model.Outcome, error) {
	log.WithField("target", target).Debugf("remote: %s", r.command)

	started := r.now()
	res, err := r.transport.Exec(ctx, target, r.command)
	finished := r.now()

	o := model.Outcome{
		Target:     target,
		ExitCode:   res.ExitCode,
		StartedAt:  started,
		FinishedAt: finished,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
	}
	if err != nil {
		o.ExitCode = -1
		o.Err = &TransportError{Target: target, Err: err}
		return o, o.Err
	}
	o.Succeeded = res.Success()
	return o, nil
}
