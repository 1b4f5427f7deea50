package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/netposture/netposture/internal/core/domain"
	"github.com/netposture/netposture/internal/core/ports"
)

// Script drives a replay session: canned command outputs plus optional
// injected failures. Used by verifier tests and demo mode, where no real
// device is reachable.
type Script struct {
	Hostname string
	Version  string
	// Outputs maps a command to its canned output. "show running-config"
	// is the one the verifier always asks for.
	Outputs map[string]string
	// ConnectErr makes Connect fail.
	ConnectErr error
	// CommandErrs makes individual commands fail.
	CommandErrs map[string]error
}

// ReplayDialer hands out replay sessions for one script.
type ReplayDialer struct {
	Script Script
}

// Dial returns a fresh replay session for the script.
func (d *ReplayDialer) Dial(_ context.Context, target domain.Target) (ports.DeviceSession, error) {
	return NewReplay(target.Host, d.Script), nil
}

// Replay is a scripted in-memory DeviceSession.
type Replay struct {
	host   string
	script Script

	mu              sync.Mutex
	connected       bool
	disconnectCalls int
	commandLog      []string
}

// NewReplay builds a replay session over the given script.
func NewReplay(host string, script Script) *Replay {
	return &Replay{host: host, script: script}
}

// Host returns the scripted host label.
func (r *Replay) Host() string { return r.host }

// Connect succeeds unless the script injects a failure. Disconnect stays
// safe either way.
func (r *Replay) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.script.ConnectErr != nil {
		return r.script.ConnectErr
	}
	r.mu.Lock()
	r.connected = true
	r.mu.Unlock()
	return nil
}

// Disconnect is idempotent and counts its calls for test assertions.
func (r *Replay) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected = false
	r.disconnectCalls++
	return nil
}

// DisconnectCalls reports how often Disconnect ran.
func (r *Replay) DisconnectCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnectCalls
}

// CommandLog returns the commands sent so far, in order.
func (r *Replay) CommandLog() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commandLog...)
}

// SendCommand replays the scripted output for cmd.
func (r *Replay) SendCommand(ctx context.Context, cmd string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	connected := r.connected
	if connected {
		r.commandLog = append(r.commandLog, cmd)
	}
	r.mu.Unlock()

	if !connected {
		return "", fmt.Errorf("session not connected")
	}
	if err := r.script.CommandErrs[cmd]; err != nil {
		return "", err
	}
	return r.script.Outputs[cmd], nil
}

// Version returns the scripted version string.
func (r *Replay) Version(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.script.Version == "" {
		return "", fmt.Errorf("no version scripted")
	}
	return r.script.Version, nil
}

// Hostname returns the scripted hostname, falling back to the host label.
func (r *Replay) Hostname(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r.script.Hostname != "" {
		return r.script.Hostname, nil
	}
	return r.host, nil
}
