// Package ports declares the interfaces between the matching engine and its
// collaborators. The core depends on these only; concrete transports and
// stores live in internal/adapters.
package ports

import (
	"context"

	"github.com/netposture/netposture/internal/core/domain"
)

// VulnerabilityStore is the read-only vulnerability record store. The engine
// issues filtered queries and never writes records.
type VulnerabilityStore interface {
	// FindByPlatform returns every record of the given type for one
	// platform. An unreachable store yields a *domain.StorageError.
	FindByPlatform(ctx context.Context, platform domain.Platform, vulnType domain.VulnType) ([]domain.VulnerabilityRecord, error)

	// CountRecords returns the total number of stored records.
	CountRecords(ctx context.Context) (int64, error)

	Close() error
}

// AdvisoryCache stores classification results keyed by the composite
// (advisoryID, platform). Implementations must upsert idempotently: a
// duplicate-insert race resolves to an update, never an error.
type AdvisoryCache interface {
	// Get returns the entry for the exact composite key, or (nil, nil) on
	// a miss. A different platform under the same advisory ID is a miss.
	Get(ctx context.Context, advisoryID string, platform domain.Platform) (*domain.AdvisoryCacheEntry, error)

	// Put inserts or replaces the entry under its composite key.
	Put(ctx context.Context, entry domain.AdvisoryCacheEntry) error

	// Len returns the number of cached entries.
	Len(ctx context.Context) (int, error)

	Close() error
}

// DeviceSession is the abstract capability this engine uses to talk to one
// device. Concrete SSH/telnet transports live in the adapter layer; the core
// has no network dependency of its own.
type DeviceSession interface {
	// Connect establishes the session. A failed Connect still leaves the
	// session safe to Disconnect.
	Connect(ctx context.Context) error

	// Disconnect releases the session. Idempotent; safe after a failed
	// Connect and safe to call twice.
	Disconnect() error

	// Hostname returns the device hostname.
	Hostname(ctx context.Context) (string, error)

	// Version returns the device software version string, parsed from
	// "show version" output.
	Version(ctx context.Context) (string, error)

	// SendCommand executes one CLI command and returns its raw output.
	// A context deadline aborts the in-flight command.
	SendCommand(ctx context.Context, cmd string) (string, error)
}

// SessionDialer creates an unconnected session for a target. Dialers are
// registered per transport name.
type SessionDialer interface {
	Dial(ctx context.Context, target domain.Target) (DeviceSession, error)
}

// TaxonomyProvider hands out the per-platform feature label list maintained
// by the taxonomy collaborator.
type TaxonomyProvider interface {
	LabelsFor(platform domain.Platform) ([]domain.FeatureLabel, error)
}
