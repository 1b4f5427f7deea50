// Package session provides concrete DeviceSession transports (SSH, telnet)
// and a scripted replay session for tests and demos. The matching engine
// never touches these directly; it only sees the ports.DeviceSession
// capability.
package session

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/netposture/netposture/internal/core/domain"
	"github.com/netposture/netposture/internal/core/ports"
	"github.com/netposture/netposture/internal/telemetry"
)

const (
	defaultSSHPort    = 22
	defaultTelnetPort = 23
)

// versionOutputRe extracts the software version from "show version" output.
var versionOutputRe = regexp.MustCompile(`(?i)Version\s+(\d+\.\d+(?:\.\d+)?[a-z]?)`)

// hostnameLineRe extracts the configured hostname from running config.
var hostnameLineRe = regexp.MustCompile(`(?m)^hostname\s+(\S+)`)

// ParseVersionOutput pulls the version string out of "show version" output.
// Returns "" when no version line is found.
func ParseVersionOutput(output string) string {
	if m := versionOutputRe.FindStringSubmatch(output); m != nil {
		return m[1]
	}
	return ""
}

// SSHDialer creates SSH device sessions.
type SSHDialer struct {
	Timeout time.Duration
}

// Dial returns an unconnected SSH session for the target.
func (d *SSHDialer) Dial(_ context.Context, target domain.Target) (ports.DeviceSession, error) {
	if target.Host == "" {
		return nil, fmt.Errorf("ssh dial: empty host")
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SSHSession{target: target, timeout: timeout}, nil
}

// SSHSession is a DeviceSession over one SSH connection. Commands run on
// fresh ssh.Sessions of the same connection, one at a time.
type SSHSession struct {
	target  domain.Target
	timeout time.Duration

	mu     sync.Mutex
	client *ssh.Client
}

// Host returns the target host, for error reporting.
func (s *SSHSession) Host() string { return s.target.Host }

// Connect dials the device and authenticates. Safe to Disconnect after a
// failure.
func (s *SSHSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	port := s.target.Port
	if port == 0 {
		port = defaultSSHPort
	}
	addr := net.JoinHostPort(s.target.Host, fmt.Sprint(port))

	config := &ssh.ClientConfig{
		User:            s.target.Username,
		Auth:            []ssh.AuthMethod{ssh.Password(s.target.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         s.timeout,
	}

	dialer := net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		telemetry.SessionFailures.WithLabelValues("ssh").Inc()
		return fmt.Errorf("dial %s: %w", addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		conn.Close()
		telemetry.SessionFailures.WithLabelValues("ssh").Inc()
		return fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}

	s.client = ssh.NewClient(sshConn, chans, reqs)
	return nil
}

// Disconnect closes the connection. Idempotent.
func (s *SSHSession) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// SendCommand runs one command in a fresh ssh session. A context deadline or
// cancellation tears the session down, aborting the in-flight command.
func (s *SSHSession) SendCommand(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	client := s.client
	s.mu.Unlock()

	if client == nil {
		return "", fmt.Errorf("session not connected")
	}

	sess, err := client.NewSession()
	if err != nil {
		telemetry.SessionFailures.WithLabelValues("ssh").Inc()
		return "", fmt.Errorf("open ssh session: %w", err)
	}
	defer sess.Close()

	type cmdResult struct {
		output []byte
		err    error
	}
	done := make(chan cmdResult, 1)
	go func() {
		out, err := sess.CombinedOutput(cmd)
		done <- cmdResult{out, err}
	}()

	select {
	case <-ctx.Done():
		// Closing the session unblocks CombinedOutput.
		sess.Close()
		return "", ctx.Err()
	case res := <-done:
		if res.err != nil {
			telemetry.SessionFailures.WithLabelValues("ssh").Inc()
			return "", fmt.Errorf("run %q: %w", cmd, res.err)
		}
		return string(res.output), nil
	}
}

// Version reads and parses the device software version.
func (s *SSHSession) Version(ctx context.Context) (string, error) {
	output, err := s.SendCommand(ctx, "show version")
	if err != nil {
		return "", err
	}
	version := ParseVersionOutput(output)
	if version == "" {
		return "", fmt.Errorf("no version line in %q output", "show version")
	}
	return version, nil
}

// Hostname reads the configured hostname, falling back to the target host
// when the device does not expose one.
func (s *SSHSession) Hostname(ctx context.Context) (string, error) {
	output, err := s.SendCommand(ctx, "show running-config | include hostname")
	if err != nil {
		return "", err
	}
	if m := hostnameLineRe.FindStringSubmatch(output); m != nil {
		return m[1], nil
	}
	return strings.TrimSpace(s.target.Host), nil
}
