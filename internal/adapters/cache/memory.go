// Package cache provides AdvisoryCache implementations: in-process memory,
// SQLite, and Redis. All of them upsert idempotently on the composite
// (advisoryID, platform) key.
package cache

import (
	"context"
	"sync"

	"github.com/netposture/netposture/internal/core/domain"
)

type cacheKey struct {
	advisoryID string
	platform   domain.Platform
}

// Memory is an in-process AdvisoryCache. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[cacheKey]domain.AdvisoryCacheEntry
}

// NewMemory returns an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[cacheKey]domain.AdvisoryCacheEntry)}
}

// Get returns the entry for the exact composite key, or (nil, nil) on miss.
func (m *Memory) Get(_ context.Context, advisoryID string, platform domain.Platform) (*domain.AdvisoryCacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[cacheKey{advisoryID, platform}]
	if !ok {
		return nil, nil
	}
	out := entry
	return &out, nil
}

// Put inserts or replaces the entry under its composite key.
func (m *Memory) Put(_ context.Context, entry domain.AdvisoryCacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[cacheKey{entry.AdvisoryID, entry.Platform}] = entry
	return nil
}

// Len returns the number of cached entries.
func (m *Memory) Len(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

// Close is a no-op for the memory cache.
func (m *Memory) Close() error { return nil }
