package session

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/ziutek/telnet"

	"github.com/netposture/netposture/internal/core/domain"
	"github.com/netposture/netposture/internal/core/ports"
	"github.com/netposture/netposture/internal/telemetry"
)

// promptSuffixes mark the end of command output on Cisco-style CLIs.
var promptSuffixes = []string{"#", ">"}

// TelnetDialer creates telnet device sessions for lab gear without SSH.
type TelnetDialer struct {
	Timeout time.Duration
}

// Dial returns an unconnected telnet session for the target.
func (d *TelnetDialer) Dial(_ context.Context, target domain.Target) (ports.DeviceSession, error) {
	if target.Host == "" {
		return nil, fmt.Errorf("telnet dial: empty host")
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &TelnetSession{target: target, timeout: timeout}, nil
}

// TelnetSession is a DeviceSession over a plain telnet channel. One command
// at a time; output is read up to the next CLI prompt.
type TelnetSession struct {
	target  domain.Target
	timeout time.Duration

	mu   sync.Mutex
	conn *telnet.Conn
}

// Host returns the target host, for error reporting.
func (s *TelnetSession) Host() string { return s.target.Host }

// Connect dials the device and walks the login prompts.
func (s *TelnetSession) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	port := s.target.Port
	if port == 0 {
		port = defaultTelnetPort
	}
	addr := net.JoinHostPort(s.target.Host, fmt.Sprint(port))

	conn, err := telnet.DialTimeout("tcp", addr, s.timeout)
	if err != nil {
		telemetry.SessionFailures.WithLabelValues("telnet").Inc()
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	conn.SetUnixWriteMode(true)

	if err := s.login(ctx, conn); err != nil {
		conn.Close()
		telemetry.SessionFailures.WithLabelValues("telnet").Inc()
		return fmt.Errorf("login to %s: %w", addr, err)
	}

	s.conn = conn
	return nil
}

func (s *TelnetSession) login(ctx context.Context, conn *telnet.Conn) error {
	if err := s.applyDeadline(ctx, conn); err != nil {
		return err
	}

	if s.target.Username != "" {
		if _, err := conn.ReadUntil("sername:"); err != nil {
			return fmt.Errorf("username prompt: %w", err)
		}
		if _, err := conn.Write([]byte(s.target.Username + "\n")); err != nil {
			return err
		}
	}
	if s.target.Password != "" {
		if _, err := conn.ReadUntil("assword:"); err != nil {
			return fmt.Errorf("password prompt: %w", err)
		}
		if _, err := conn.Write([]byte(s.target.Password + "\n")); err != nil {
			return err
		}
	}
	if _, err := conn.ReadUntil(promptSuffixes...); err != nil {
		return fmt.Errorf("command prompt: %w", err)
	}
	return nil
}

// Disconnect closes the channel. Idempotent.
func (s *TelnetSession) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// SendCommand writes one command and reads output until the next prompt. The
// context deadline is mapped onto the connection read deadline.
func (s *TelnetSession) SendCommand(ctx context.Context, cmd string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return "", fmt.Errorf("session not connected")
	}
	if err := s.applyDeadline(ctx, s.conn); err != nil {
		return "", err
	}

	if _, err := s.conn.Write([]byte(cmd + "\n")); err != nil {
		telemetry.SessionFailures.WithLabelValues("telnet").Inc()
		return "", fmt.Errorf("send %q: %w", cmd, err)
	}

	raw, err := s.conn.ReadUntil(promptSuffixes...)
	if err != nil {
		telemetry.SessionFailures.WithLabelValues("telnet").Inc()
		return "", fmt.Errorf("read %q output: %w", cmd, err)
	}

	output := string(raw)
	// Drop the echoed command line from the head of the output.
	if idx := strings.Index(output, "\n"); idx >= 0 && strings.Contains(output[:idx], cmd) {
		output = output[idx+1:]
	}
	return output, nil
}

// applyDeadline sets the read deadline from the context deadline, falling
// back to the session timeout.
func (s *TelnetSession) applyDeadline(ctx context.Context, conn *telnet.Conn) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(s.timeout)
	}
	return conn.SetReadDeadline(deadline)
}

// Version reads and parses the device software version.
func (s *TelnetSession) Version(ctx context.Context) (string, error) {
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

// Hostname reads the configured hostname, falling back to the target host.
func (s *TelnetSession) Hostname(ctx context.Context) (string, error) {
	output, err := s.SendCommand(ctx, "show running-config | include hostname")
	if err != nil {
		return "", err
	}
	if m := hostnameLineRe.FindStringSubmatch(output); m != nil {
		return m[1], nil
	}
	return strings.TrimSpace(s.target.Host), nil
}
