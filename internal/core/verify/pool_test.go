package verify

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netposture/netposture/internal/adapters/session"
	"github.com/netposture/netposture/internal/core/domain"
	"github.com/netposture/netposture/internal/core/ports"
)

// scriptedDialer hands out a per-host replay session, failing the dial for
// hosts it has no script for.
type scriptedDialer struct {
	scripts map[string]session.Script
}

func (d *scriptedDialer) Dial(_ context.Context, target domain.Target) (ports.DeviceSession, error) {
	script, ok := d.scripts[target.Host]
	if !ok {
		return nil, errors.New("no route to host")
	}
	return session.NewReplay(target.Host, script), nil
}

func TestVerifyTargetsBatch(t *testing.T) {
	vulnerable := session.Script{
		Version: "17.03.05",
		Outputs: map[string]string{
			"show running-config": "ip ssh version 2\n",
			"show ip ssh":         "ok",
			"show ssh":            "ok",
		},
	}
	clean := session.Script{
		Version: "16.12.4",
		Outputs: map[string]string{
			"show running-config": "ip ssh version 2\n",
		},
	}

	dialer := &scriptedDialer{scripts: map[string]session.Script{}}
	var targets []domain.Target
	for i := 0; i < 6; i++ {
		host := fmt.Sprintf("edge-%02d", i)
		if i%2 == 0 {
			dialer.scripts[host] = vulnerable
		} else {
			dialer.scripts[host] = clean
		}
		targets = append(targets, domain.Target{Host: host, Transport: "replay"})
	}
	// An unreachable device in the middle of the batch.
	targets = append(targets[:3], append([]domain.Target{{Host: "dead-host", Transport: "replay"}}, targets[3:]...)...)

	pool := NewPool(New(), dialer, 3, nil)
	results := pool.VerifyTargets(context.Background(), targets, sshAdvisory())

	require.Len(t, results, 7)

	var vulnCount, cleanCount, errCount int
	for i, result := range results {
		switch result.OverallStatus {
		case domain.StatusVulnerable:
			vulnCount++
		case domain.StatusNotVulnerable:
			cleanCount++
		case domain.StatusError:
			errCount++
			assert.Equal(t, "dead-host", targets[i].Host)
		default:
			t.Fatalf("unexpected status %s", result.OverallStatus)
		}
	}

	// One dead device never aborts the rest of the batch.
	assert.Equal(t, 3, vulnCount)
	assert.Equal(t, 3, cleanCount)
	assert.Equal(t, 1, errCount)
}

func TestVerifyTargetsOrderPreserved(t *testing.T) {
	dialer := &scriptedDialer{scripts: map[string]session.Script{
		"a": {Version: "17.03.05", Outputs: map[string]string{"show running-config": "ip ssh\n", "show ip ssh": "", "show ssh": ""}},
		"b": {Version: "16.12.4", Outputs: map[string]string{"show running-config": ""}},
	}}
	targets := []domain.Target{
		{Host: "a", Transport: "replay"},
		{Host: "b", Transport: "replay"},
	}

	pool := NewPool(New(), dialer, 2, nil)
	results := pool.VerifyTargets(context.Background(), targets, sshAdvisory())

	require.Len(t, results, 2)
	assert.Equal(t, domain.StatusVulnerable, results[0].OverallStatus)
	assert.Equal(t, domain.StatusNotVulnerable, results[1].OverallStatus)
}

func TestVerifyTargetsWorkerClamp(t *testing.T) {
	pool := NewPool(New(), &scriptedDialer{scripts: map[string]session.Script{}}, 0, nil)
	results := pool.VerifyTargets(context.Background(), []domain.Target{{Host: "x", Transport: "replay"}}, sshAdvisory())
	require.Len(t, results, 1)
	assert.Equal(t, domain.StatusError, results[0].OverallStatus)
}
