package session

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/netposture/netposture/internal/core/domain"
	"github.com/netposture/netposture/internal/core/ports"
)

// Registry maps transport names to session dialers and is itself a
// ports.SessionDialer that routes by target.Transport.
type Registry struct {
	mu      sync.RWMutex
	dialers map[string]ports.SessionDialer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{dialers: make(map[string]ports.SessionDialer)}
}

// Register binds a transport name to a dialer, replacing any previous one.
func (r *Registry) Register(transport string, dialer ports.SessionDialer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dialers[transport] = dialer
}

// Dial routes to the dialer registered for the target's transport.
func (r *Registry) Dial(ctx context.Context, target domain.Target) (ports.DeviceSession, error) {
	r.mu.RLock()
	dialer, ok := r.dialers[target.Transport]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown transport %q (registered: %v)", target.Transport, r.Transports())
	}
	return dialer.Dial(ctx, target)
}

// Transports lists the registered transport names, sorted.
func (r *Registry) Transports() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.dialers))
	for name := range r.dialers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
