package executor

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"io"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

type fakeSession struct {
	stdout, stderr string
	code           int
	err            error
	ran            string
	closed         bool
}

func (s *fakeSession) Run(command string, stdout, stderr io.Writer) (int, error) {
	s.ran = command
	io.WriteString(stdout, s.stdout)
	io.WriteString(stderr, s.stderr)
	return s.code, s.err
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func writeTestKey(t *testing.T) string {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	block, err := ssh.MarshalPrivateKey(priv, "pupdate-test")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "id_ed25519")
	require.NoError(t, ioutil.WriteFile(path, pem.EncodeToMemory(block), 0600))
	return path
}

func TestSplitTarget(t *testing.T) {
	cases := []struct {
		target, user, wantUser, wantAddr string
	}{
		{"garden", "pi", "pi", "garden:22"},
		{"root@garden", "pi", "root", "garden:22"},
		{"garden:2222", "pi", "pi", "garden:2222"},
		{"admin@10.0.0.7:2200", "", "admin", "10.0.0.7:2200"},
		{"[::1]", "pi", "pi", "[::1]:22"},
	}
	for _, c := range cases {
		user, addr, err := splitTarget(c.target, c.user)
		require.NoError(t, err, c.target)
		require.Equal(t, c.wantUser, user, c.target)
		require.Equal(t, c.wantAddr, addr, c.target)
	}

	_, _, err := splitTarget("pi@", "pi")
	require.Error(t, err)
	_, _, err = splitTarget("garden:ssh", "pi")
	require.Error(t, err)
}

func TestSSHTransport_Exec(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	sess := &fakeSession{stdout: "upgraded\n", stderr: "note\n", code: 0}
	tr := NewSSHTransport(SSHConfig{User: "pi", KeyPath: writeTestKey(t)})
	var dialed string
	tr.dial = func(addr string, cfg *ssh.ClientConfig) (remoteSession, error) {
		dialed = addr
		require.Equal(t, "pi", cfg.User)
		require.Len(t, cfg.Auth, 1)
		return sess, nil
	}

	res, err := tr.Exec(context.Background(), "garden", DefaultRemoteCommand)
	require.NoError(t, err)
	require.Equal(t, "garden:22", dialed)
	require.Equal(t, DefaultRemoteCommand, sess.ran)
	require.True(t, sess.closed)
	require.Equal(t, "upgraded\n", string(res.Stdout))
	require.Equal(t, "note\n", string(res.Stderr))
	require.True(t, res.Success())
}

func TestSSHTransport_ExitStatus(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	tr := NewSSHTransport(SSHConfig{User: "pi", KeyPath: writeTestKey(t)})
	tr.dial = func(addr string, cfg *ssh.ClientConfig) (remoteSession, error) {
		return &fakeSession{code: 3, stderr: "dpkg lock\n"}, nil
	}

	res, err := tr.Exec(context.Background(), "garden", DefaultRemoteCommand)
	require.NoError(t, err)
	require.Equal(t, 3, res.ExitCode)
}

func TestSSHTransport_DialErrorThroughRemoteIsTransportError(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")
	tr := NewSSHTransport(SSHConfig{User: "pi", KeyPath: writeTestKey(t)})
	tr.dial = func(addr string, cfg *ssh.ClientConfig) (remoteSession, error) {
		return nil, errors.New("connection refused")
	}

	o, err := NewRemote(tr, "").Execute(context.Background(), "garden")
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	require.False(t, o.Succeeded)
}

func TestSSHTransport_ClientConfigErrors(t *testing.T) {
	t.Setenv("SSH_AUTH_SOCK", "")

	_, err := NewSSHTransport(SSHConfig{User: "pi"}).clientConfig("pi")
	require.Error(t, err, "no key and no agent")

	_, err = NewSSHTransport(SSHConfig{}).clientConfig("")
	require.Error(t, err, "no user")

	tr := NewSSHTransport(SSHConfig{
		User:          "pi",
		KeyPath:       writeTestKey(t),
		StrictHostKey: true,
		KnownHosts:    filepath.Join(t.TempDir(), "missing_known_hosts"),
	})
	_, err = tr.clientConfig("pi")
	require.Error(t, err)
}
