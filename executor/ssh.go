package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	defaultSSHPort        = 22
	defaultConnectTimeout = 15 * time.Second
)

// SSHConfig holds the options of the native SSH transport
type SSHConfig struct {
	User           string
	KeyPath        string
	Passphrase     string
	KnownHosts     string
	StrictHostKey  bool
	ConnectTimeout time.Duration
}

// remoteSession runs exactly one command on an established connection
type remoteSession interface {
	Run(command string, stdout, stderr io.Writer) (exitCode int, err error)
	Close() error
}

type sessionDialer func(addr string, cfg *ssh.ClientConfig) (remoteSession, error)

// SSHTransport executes commands with golang.org/x/crypto/ssh instead of the ssh binary.
//	Targets are given as [user@]host[:port].
type SSHTransport struct {
	conf SSHConfig
	dial sessionDialer

	// one agent connection shared by all targets
	agentOnce sync.Once
	agent     agent.ExtendedAgent
}

// NewSSHTransport returns the native transport. Without a configured user, $USER is used.
func NewSSHTransport(conf SSHConfig) *SSHTransport {
	if conf.ConnectTimeout == 0 {
		conf.ConnectTimeout = defaultConnectTimeout
	}
	if conf.User == "" {
		conf.User = os.Getenv("USER")
	}
	return &SSHTransport{
		conf: conf,
		dial: dialSession,
	}
}

func (t *SSHTransport) Exec(ctx context.Context, target, command string) (Result, error) {
	user, addr, err := splitTarget(target, t.conf.User)
	if err != nil {
		return Result{}, err
	}
	cfg, err := t.clientConfig(user)
	if err != nil {
		return Result{}, err
	}

	sess, err := t.dial(addr, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("ssh connection to %s failed: %s", addr, err)
	}
	// a cancelled context tears down the connection
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			sess.Close()
		case <-done:
		}
	}()
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	code, err := sess.Run(command, &stdout, &stderr)
	res := Result{
		ExitCode: code,
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
	}
	if err != nil {
		return res, fmt.Errorf("ssh session on %s failed: %s", addr, err)
	}
	return res, nil
}

func (t *SSHTransport) clientConfig(user string) (*ssh.ClientConfig, error) {
	if user == "" {
		return nil, fmt.Errorf("no ssh user given")
	}

	var auths []ssh.AuthMethod
	if t.conf.KeyPath != "" {
		signer, err := loadSigner(t.conf.KeyPath, t.conf.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("error loading key: %s", err)
		}
		auths = append(auths, ssh.PublicKeys(signer))
	}
	if a := t.sshAgent(); a != nil {
		auths = append(auths, ssh.PublicKeysCallback(a.Signers))
	}
	if len(auths) == 0 {
		return nil, fmt.Errorf("no ssh authentication method available: set a key or start an ssh agent")
	}

	var hostKeyCB ssh.HostKeyCallback
	if t.conf.StrictHostKey {
		if _, err := os.Stat(t.conf.KnownHosts); err != nil {
			return nil, fmt.Errorf("known_hosts file not found at %s and strict host key checking is enabled", t.conf.KnownHosts)
		}
		cb, err := knownhosts.New(t.conf.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("known_hosts: %s", err)
		}
		hostKeyCB = cb
	} else {
		hostKeyCB = ssh.InsecureIgnoreHostKey()
	}

	return &ssh.ClientConfig{
		User:            user,
		Auth:            auths,
		HostKeyCallback: hostKeyCB,
		Timeout:         t.conf.ConnectTimeout,
	}, nil
}

func (t *SSHTransport) sshAgent() agent.ExtendedAgent {
	t.agentOnce.Do(func() {
		sock := os.Getenv("SSH_AUTH_SOCK")
		if sock == "" {
			return
		}
		conn, err := net.Dial("unix", sock)
		if err != nil {
			log.Debugf("ssh: agent not reachable: %s", err)
			return
		}
		t.agent = agent.NewClient(conn)
	})
	return t.agent
}

// splitTarget parses [user@]host[:port]
func splitTarget(target, defaultUser string) (user, addr string, err error) {
	user = defaultUser
	host := target
	if i := strings.LastIndex(target, "@"); i >= 0 {
		user, host = target[:i], target[i+1:]
	}
	if host == "" {
		return "", "", fmt.Errorf("invalid target: %q", target)
	}

	if h, p, err := net.SplitHostPort(host); err == nil {
		if _, err := strconv.Atoi(p); err != nil {
			return "", "", fmt.Errorf("invalid port in target %q", target)
		}
		return user, net.JoinHostPort(h, p), nil
	}
	return user, net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(defaultSSHPort)), nil
}

func loadSigner(path, passphrase string) (ssh.Signer, error) {
	b, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(b, []byte(passphrase))
	}
	return ssh.ParsePrivateKey(b)
}

func dialSession(addr string, cfg *ssh.ClientConfig) (remoteSession, error) {
	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, err
	}
	return &sshSession{client: client}, nil
}

// sshSession wraps an ssh client, opening one session per command
type sshSession struct {
	client *ssh.Client
}

func (s *sshSession) Run(command string, stdout, stderr io.Writer) (int, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return -1, err
	}
	defer session.Close()
	session.Stdout = stdout
	session.Stderr = stderr

	err = session.Run(command)
	if err == nil {
		return 0, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitStatus(), nil
	}
	var missingErr *ssh.ExitMissingError
	if errors.As(err, &missingErr) {
		// remote side closed without reporting a status
		return -1, nil
	}
	return -1, err
}

func (s *sshSession) Close() error {
	return s.client.Close()
}
