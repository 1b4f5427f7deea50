package scanner

import (
	"context"
	"fmt"

	"github.com/netposture/netposture/internal/core/domain"
	"github.com/netposture/netposture/internal/telemetry"
)

// CheckCache looks up a cached classification for the exact composite
// (advisoryID, platform) key. A miss returns (nil, nil); misses are normal,
// not errors.
func (s *Scanner) CheckCache(ctx context.Context, advisoryID string, platform domain.Platform) (*domain.AdvisoryCacheEntry, error) {
	entry, err := s.cache.Get(ctx, advisoryID, platform)
	if err != nil {
		return nil, fmt.Errorf("advisory cache lookup: %w", err)
	}
	if entry == nil {
		telemetry.CacheOps.WithLabelValues("miss").Inc()
		return nil, nil
	}
	telemetry.CacheOps.WithLabelValues("hit").Inc()
	return entry, nil
}

// CacheResult upserts a classification result under its composite key, but
// only when its confidence clears the configured threshold. Low-confidence
// results are discarded: fail to cache, not fail to classify. The upsert is
// idempotent, so concurrent writers for the same key converge on an update.
func (s *Scanner) CacheResult(ctx context.Context, entry domain.AdvisoryCacheEntry) error {
	if entry.Confidence < s.threshold {
		telemetry.CacheOps.WithLabelValues("rejected").Inc()
		s.logger.Debug("classification below confidence threshold, not cached",
			"advisory_id", entry.AdvisoryID,
			"platform", entry.Platform,
			"confidence", entry.Confidence,
			"threshold", s.threshold)
		return nil
	}

	if entry.CachedAt.IsZero() {
		entry.CachedAt = s.clock.Now()
	}
	if err := s.cache.Put(ctx, entry); err != nil {
		return fmt.Errorf("advisory cache upsert: %w", err)
	}
	telemetry.CacheOps.WithLabelValues("write").Inc()
	return nil
}
