package executor

import (
	"context"
)

const (
	DefaultSSHBinary     = "ssh"
	DefaultRemoteCommand = "sudo pupdate"
)

// Transport carries a command to a remote target and returns its captured result.
//	An error means the command could not be carried to the target at all.
type Transport interface {
	Exec(ctx context.Context, target, command string) (Result, error)
}

// ShellTransport invokes the ssh binary through a CommandRunner:
//	<binary> [args...] -- <target> <command>
type ShellTransport struct {
	Runner CommandRunner
	Binary string
	Args   []string
}

func NewShellTransport(runner CommandRunner, binary string, args ...string) *ShellTransport {
	if binary == "" {
		binary = DefaultSSHBinary
	}
	return &ShellTransport{
		Runner: runner,
		Binary: binary,
		Args:   args,
	}
}

func (t *ShellTransport) Exec(ctx context.Context, target, command string) (Result, error) {
	args := make([]string, 0, len(t.Args)+3)
	args = append(args, t.Args...)
	// a target is never parsed as an ssh option
	args = append(args, "--", target, command)
	return t.Runner.Run(ctx, t.Binary, args...)
}
