package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestShellTransport_BuildsSSHInvocation(t *testing.T) {
	r := newFakeRunner()
	r.results["ssh -o BatchMode=yes -- pi@garden sudo pupdate"] = Result{Stdout: []byte("ok")}

	res, err := NewShellTransport(r, "", "-o", "BatchMode=yes").Exec(context.Background(), "pi@garden", DefaultRemoteCommand)
	require.NoError(t, err)
	require.Equal(t, "ok", string(res.Stdout))
	require.Equal(t, []string{"ssh -o BatchMode=yes -- pi@garden sudo pupdate"}, r.called())
}

func TestRemote_Success(t *testing.T) {
	r := newFakeRunner()
	r.results["ssh -- alpha sudo pupdate"] = Result{Stdout: []byte("done\n"), Stderr: []byte("warn\n")}

	rem := NewRemote(NewShellTransport(r, ""), "")
	clock := time.Unix(1000, 0)
	rem.now = func() time.Time {
		clock = clock.Add(2 * time.Second)
		return clock
	}

	o, err := rem.Execute(context.Background(), "alpha")
	require.NoError(t, err)
	require.True(t, o.Succeeded)
	require.Equal(t, "alpha", o.Target)
	require.Equal(t, "done\n", string(o.Stdout))
	require.Equal(t, "warn\n", string(o.Stderr))
	require.Equal(t, 2*time.Second, o.Elapsed())
}

func TestRemote_NonZeroExitIsFailureNotError(t *testing.T) {
	r := newFakeRunner()
	r.results["ssh -- beta sudo pupdate"] = Result{ExitCode: 255, Stderr: []byte("Connection refused\n")}

	o, err := NewRemote(NewShellTransport(r, ""), "").Execute(context.Background(), "beta")
	require.NoError(t, err)
	require.False(t, o.Succeeded)
	require.Equal(t, 255, o.ExitCode)
	require.Nil(t, o.Err)
}

func TestRemote_SpawnFailureIsTransportError(t *testing.T) {
	r := newFakeRunner()
	r.errs["ssh -- gamma sudo pupdate"] = &SpawnError{Command: "ssh", Err: errors.New("not found")}

	o, err := NewRemote(NewShellTransport(r, ""), "").Execute(context.Background(), "gamma")
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	require.Equal(t, "gamma", transportErr.Target)
	var spawnErr *SpawnError
	require.True(t, errors.As(err, &spawnErr))
	require.False(t, o.Succeeded)
	require.Equal(t, -1, o.ExitCode)
}

func TestRemote_CustomCommand(t *testing.T) {
	r := newFakeRunner()
	_, err := NewRemote(NewShellTransport(r, "/usr/bin/ssh"), "sudo apt-get -y dist-upgrade").Execute(context.Background(), "delta")
	require.NoError(t, err)
	require.Equal(t, []string{"/usr/bin/ssh -- delta sudo apt-get -y dist-upgrade"}, r.called())
}

func TestShellTransport_TargetNotParsedAsOption(t *testing.T) {
	r := newFakeRunner()
	_, err := NewShellTransport(r, "").Exec(context.Background(), "-oProxyCommand=touch /tmp/x", DefaultRemoteCommand)
	require.NoError(t, err)
	require.Equal(t, []string{"ssh -- -oProxyCommand=touch /tmp/x sudo pupdate"}, r.called())
}
