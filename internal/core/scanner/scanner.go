// Package scanner implements the bulk tiered vulnerability scan: a read-only
// version -> hardware -> feature filter pipeline over the record store, plus
// a confidence-gated cache for PSIRT classification results.
package scanner

import (
	"context"
	"log/slog"
	"sort"

	"github.com/WatchBeam/clock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/netposture/netposture/internal/core/domain"
	"github.com/netposture/netposture/internal/core/ports"
	"github.com/netposture/netposture/internal/core/versions"
	"github.com/netposture/netposture/internal/telemetry"
)

// DefaultConfidenceThreshold gates cache writes: classification results below
// it are discarded, never stored as low-quality entries.
const DefaultConfidenceThreshold = 0.75

// ScanRequest parameterizes one bulk scan. HardwareModel and Labels are
// optional tiers: an empty model skips Tier B, a nil label slice skips
// Tier C.
type ScanRequest struct {
	Platform      domain.Platform
	Version       string
	HardwareModel string
	Labels        []string
}

// Scanner runs tiered scans against the vulnerability store. Read-only apart
// from advisory cache upserts; safe for concurrent callers.
type Scanner struct {
	store     ports.VulnerabilityStore
	cache     ports.AdvisoryCache
	matcher   *versions.Matcher
	clock     clock.Clock
	threshold float64
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClock injects the time source, mainly for tests.
func WithClock(c clock.Clock) Option {
	return func(s *Scanner) { s.clock = c }
}

// WithConfidenceThreshold overrides the cache-write confidence gate.
func WithConfidenceThreshold(t float64) Option {
	return func(s *Scanner) { s.threshold = t }
}

// WithLogger injects the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// New builds a Scanner over the given store and advisory cache.
func New(store ports.VulnerabilityStore, cache ports.AdvisoryCache, opts ...Option) *Scanner {
	s := &Scanner{
		store:     store,
		cache:     cache,
		matcher:   versions.NewMatcher(),
		clock:     clock.C,
		threshold: DefaultConfidenceThreshold,
		logger:    slog.Default(),
		tracer:    otel.Tracer("netposture/scanner"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScanDevice runs the three filter tiers for one device and returns the
// surviving records ordered severity-first. A store failure propagates as a
// *domain.StorageError; it is never flattened into an empty result.
func (s *Scanner) ScanDevice(ctx context.Context, req ScanRequest) (*domain.ScanResult, error) {
	ctx, span := s.tracer.Start(ctx, "scanner.ScanDevice",
		trace.WithAttributes(
			attribute.String("platform", string(req.Platform)),
			attribute.String("version", req.Version),
		))
	defer span.End()

	start := s.clock.Now()
	result := &domain.ScanResult{
		ScanID:        uuid.NewString(),
		Platform:      req.Platform,
		DeviceVersion: req.Version,
		HardwareModel: req.HardwareModel,
		Labels:        req.Labels,
	}

	records, err := s.store.FindByPlatform(ctx, req.Platform, domain.VulnTypeBug)
	if err != nil {
		if !domain.IsStorageError(err) {
			err = domain.NewStorageError("find by platform", err)
		}
		span.RecordError(err)
		return nil, err
	}

	deviceVersion := versions.Normalize(req.Version)
	if deviceVersion == nil {
		s.logger.Warn("scan with unparsable device version, no version matches possible",
			"platform", req.Platform, "version", req.Version)
	}

	// Tier A: version train match. Platform equality is an invariant of
	// the store query, re-checked here so a store defect cannot leak
	// cross-platform records into a result.
	matched := make([]domain.VulnerabilityRecord, 0, len(records))
	for _, rec := range records {
		if rec.Platform != req.Platform {
			s.logger.Error("store returned cross-platform record, dropping",
				"record", rec.ID, "got", rec.Platform, "want", req.Platform)
			continue
		}
		if s.matcher.MatchesTrainRaw(deviceVersion, rec.AffectedVersionsRaw) {
			matched = append(matched, rec)
		}
	}
	result.VersionMatches = len(matched)
	telemetry.TierDropped.WithLabelValues(string(req.Platform), "version").
		Add(float64(len(records) - len(matched)))

	// Tier B: hardware filter, only when a model was supplied. Generic
	// records (nil hardware) always survive.
	if req.HardwareModel != "" {
		kept := matched[:0]
		for _, rec := range matched {
			if rec.AppliesToHardware(req.HardwareModel) {
				kept = append(kept, rec)
			}
		}
		result.HardwareFilteredCount = len(matched) - len(kept)
		matched = kept
		telemetry.TierDropped.WithLabelValues(string(req.Platform), "hardware").
			Add(float64(result.HardwareFilteredCount))
	}
	result.HardwareFiltered = len(matched)

	// Tier C: feature filter, only when labels were supplied. Unlabeled
	// records are conservatively kept.
	if req.Labels != nil {
		kept := matched[:0]
		for _, rec := range matched {
			if rec.MatchesAnyLabel(req.Labels) {
				kept = append(kept, rec)
			}
		}
		telemetry.TierDropped.WithLabelValues(string(req.Platform), "feature").
			Add(float64(len(matched) - len(kept)))
		matched = kept
	}
	result.FeatureFiltered = len(matched)

	// Severity 1 (Critical) first; ID breaks ties for a stable order.
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Severity != matched[j].Severity {
			return matched[i].Severity < matched[j].Severity
		}
		return matched[i].ID < matched[j].ID
	})
	result.Vulnerabilities = matched

	elapsed := s.clock.Now().Sub(start)
	result.QueryTimeMs = elapsed.Milliseconds()

	telemetry.ScansTotal.WithLabelValues(string(req.Platform)).Inc()
	telemetry.ScanDuration.WithLabelValues(string(req.Platform)).Observe(elapsed.Seconds())

	s.logger.Info("device scan complete",
		"scan_id", result.ScanID,
		"platform", req.Platform,
		"version_matches", result.VersionMatches,
		"hardware_filtered", result.HardwareFiltered,
		"feature_filtered", result.FeatureFiltered,
		"query_time_ms", result.QueryTimeMs)

	return result, nil
}
