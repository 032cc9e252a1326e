// package transport provides the SSH plumbing for reaching cluster nodes.
// Every operation dials its own authenticated connection, performs one piece
// of work and disconnects, so a wedged node never poisons a later phase.
package transport

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/toeirei/fleetpush/internal/logging"
)

// Result carries what a remote command reported back.
type Result struct {
	// ExitCode is the remote command's exit status; -1 when the command
	// never ran or its status is unknown.
	ExitCode int
	// Detail holds trimmed combined output, or an error description.
	Detail string
}

// Config carries the fleet-wide connection settings. One Config serves all
// nodes of a run.
type Config struct {
	User            string
	Port            int
	Signer          ssh.Signer
	HostKeyCallback ssh.HostKeyCallback
	ConnectTimeout  time.Duration
	CommandTimeout  time.Duration
	TransferTimeout time.Duration
}

// DefaultConfig returns connection settings matching an unconfigured run.
func DefaultConfig() Config {
	return Config{
		Port:           22,
		ConnectTimeout: 10 * time.Second,
		CommandTimeout: 30 * time.Second,
	}
}

// Dialer connects to nodes with a shared Config.
type Dialer struct {
	config Config
}

// NewDialer validates the config and returns a Dialer.
func NewDialer(cfg Config) (*Dialer, error) {
	if cfg.User == "" {
		return nil, errors.New("transport: user must not be empty")
	}
	if cfg.HostKeyCallback == nil {
		return nil, errors.New("transport: host key callback must not be nil")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	return &Dialer{config: cfg}, nil
}

// Narrow views of the ssh and sftp clients. Tests swap the package-level
// constructors below to substitute fakes without touching the network.
type sshClientIface interface {
	NewSession() (sshSession, error)
	Close() error
}

type sshSession interface {
	CombinedOutput(cmd string) ([]byte, error)
	Close() error
}

type sftpIface interface {
	Create(path string) (io.WriteCloser, error)
	Chmod(path string, mode os.FileMode) error
	Remove(path string) error
	Close() error
}

type realSSHClient struct {
	client *ssh.Client
}

func (c *realSSHClient) NewSession() (sshSession, error) { return c.client.NewSession() }
func (c *realSSHClient) Close() error                    { return c.client.Close() }

type realSftpClient struct {
	client *sftp.Client
}

func (c *realSftpClient) Create(path string) (io.WriteCloser, error) { return c.client.Create(path) }
func (c *realSftpClient) Chmod(path string, mode os.FileMode) error  { return c.client.Chmod(path, mode) }
func (c *realSftpClient) Remove(path string) error                   { return c.client.Remove(path) }
func (c *realSftpClient) Close() error                               { return c.client.Close() }

var sshDial = func(addr string, config *ssh.ClientConfig) (sshClientIface, error) {
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, err
	}
	return &realSSHClient{client: client}, nil
}

var newSftpClient = func(client sshClientIface) (sftpIface, error) {
	real, ok := client.(*realSSHClient)
	if !ok {
		return nil, errors.New("sftp requires a real ssh connection")
	}
	sftpClient, err := sftp.NewClient(real.client)
	if err != nil {
		return nil, err
	}
	return &realSftpClient{client: sftpClient}, nil
}

// addrFor appends the configured port unless the node already carries one.
func (d *Dialer) addrFor(node string) string {
	if _, _, err := net.SplitHostPort(node); err == nil {
		return node
	}
	return net.JoinHostPort(node, strconv.Itoa(d.config.Port))
}

// connect dials a node, trying the identity key first and falling back to a
// running SSH agent when key authentication is rejected.
func (d *Dialer) connect(node string) (sshClientIface, error) {
	addr := d.addrFor(node)
	var finalErr error

	if d.config.Signer != nil {
		config := &ssh.ClientConfig{
			User:            d.config.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(d.config.Signer)},
			HostKeyCallback: d.config.HostKeyCallback,
			Timeout:         d.config.ConnectTimeout,
		}
		client, err := sshDial(addr, config)
		if err == nil {
			return client, nil
		}
		// Anything other than an auth failure will not get better with the
		// agent, so fail fast.
		if !strings.Contains(err.Error(), "unable to authenticate") {
			return nil, fmt.Errorf("connection to %s failed: %w", node, err)
		}
		finalErr = err
	}

	agentClient := getSSHAgent()
	if agentClient == nil {
		if finalErr != nil {
			return nil, fmt.Errorf("key authentication failed and no SSH agent available for fallback: %w", finalErr)
		}
		return nil, errors.New("no authentication method available (no identity key and no ssh agent found)")
	}

	config := &ssh.ClientConfig{
		User:            d.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeysCallback(agentClient.Signers)},
		HostKeyCallback: d.config.HostKeyCallback,
		Timeout:         d.config.ConnectTimeout,
	}
	client, err := sshDial(addr, config)
	if err != nil {
		return nil, fmt.Errorf("connection to %s with ssh agent failed: %w", node, err)
	}
	return client, nil
}

// CopyToHome uploads the local file to the node's home directory under
// remoteName. The upload goes through SFTP, so it works for login users
// restricted to the file subsystem.
func (d *Dialer) CopyToHome(node, localPath, remoteName string) error {
	conn, err := d.connect(node)
	if err != nil {
		return err
	}
	defer conn.Close()

	sftpClient, err := newSftpClient(conn)
	if err != nil {
		return fmt.Errorf("failed to create sftp client: %w", err)
	}
	defer sftpClient.Close()

	upload := func() error {
		local, err := os.Open(localPath)
		if err != nil {
			return fmt.Errorf("failed to open local file: %w", err)
		}
		defer local.Close()

		remote, err := sftpClient.Create(remoteName)
		if err != nil {
			return fmt.Errorf("failed to create remote file: %w", err)
		}
		if _, err := io.Copy(remote, local); err != nil {
			remote.Close()
			// Best effort to clean up the failed upload.
			_ = sftpClient.Remove(remoteName)
			return fmt.Errorf("failed to write remote file: %w", err)
		}
		if err := remote.Close(); err != nil {
			_ = sftpClient.Remove(remoteName)
			return fmt.Errorf("failed to finish remote file: %w", err)
		}
		if err := sftpClient.Chmod(remoteName, 0644); err != nil {
			return fmt.Errorf("failed to chmod remote file: %w", err)
		}
		return nil
	}

	if d.config.TransferTimeout <= 0 {
		return upload()
	}

	done := make(chan error, 1)
	go func() { done <- upload() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d.config.TransferTimeout):
		// Tearing down the connection unblocks the upload goroutine.
		conn.Close()
		return fmt.Errorf("transfer to %s timed out after %s", node, d.config.TransferTimeout)
	}
}

// RunPrivileged executes the command on the node under sudo. A command that
// ran and exited non-zero comes back as a Result with that exit code and a
// nil error; the error return is reserved for transport-level failures.
// sudo runs non-interactively: a node that would prompt for a password
// fails instead of hanging the run.
func (d *Dialer) RunPrivileged(node, command string) (Result, error) {
	conn, err := d.connect(node)
	if err != nil {
		return Result{ExitCode: -1, Detail: err.Error()}, err
	}
	defer conn.Close()

	session, err := conn.NewSession()
	if err != nil {
		err = fmt.Errorf("failed to open session: %w", err)
		return Result{ExitCode: -1, Detail: err.Error()}, err
	}
	defer session.Close()

	full := "sudo -n " + command
	logging.Debugf("transport: %s: %s", node, full)

	out, err := d.runSession(session, conn, full)
	detail := strings.TrimSpace(string(out))
	if err != nil {
		var exitErr exitStatusError
		if errors.As(err, &exitErr) {
			if detail == "" {
				detail = err.Error()
			}
			return Result{ExitCode: exitErr.ExitStatus(), Detail: detail}, nil
		}
		if detail == "" {
			detail = err.Error()
		}
		return Result{ExitCode: -1, Detail: detail}, err
	}
	return Result{ExitCode: 0, Detail: detail}, nil
}

// exitStatusError matches *ssh.ExitError without naming the concrete type,
// so command failures stay classifiable when a session is faked.
type exitStatusError interface {
	error
	ExitStatus() int
}

// runSession executes the command with the configured deadline.
func (d *Dialer) runSession(session sshSession, conn sshClientIface, command string) ([]byte, error) {
	if d.config.CommandTimeout <= 0 {
		return session.CombinedOutput(command)
	}

	type sessionResult struct {
		out []byte
		err error
	}
	done := make(chan sessionResult, 1)
	go func() {
		out, err := session.CombinedOutput(command)
		done <- sessionResult{out: out, err: err}
	}()
	select {
	case r := <-done:
		return r.out, r.err
	case <-time.After(d.config.CommandTimeout):
		conn.Close()
		return nil, fmt.Errorf("command timed out after %s", d.config.CommandTimeout)
	}
}

// Probe dials and authenticates without doing any work. It reports whether
// the node would accept a deployment connection.
func (d *Dialer) Probe(node string) error {
	conn, err := d.connect(node)
	if err != nil {
		return err
	}
	return conn.Close()
}
