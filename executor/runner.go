package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Result is the captured result of one finished process
type Result struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Success returns true when the process exited with status 0
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// CommandRunner runs an external command to completion and captures its output.
//	It fails with *SpawnError only when the command could not be started.
//	A non-zero exit status is reported in the Result, not as an error.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner is the CommandRunner backed by os/exec
type ExecRunner struct {
	// Dir is the working directory of spawned processes, the current one if empty
	Dir string
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Debugf("exec: %s %s", name, strings.Join(args, " "))
	err := cmd.Run()
	res := Result{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if res.ExitCode < 0 {
			// killed by a signal
			res.ExitCode = -1
		}
		return res, nil
	}
	return res, &SpawnError{Command: name, Err: err}
}
