package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ScansTotal counts bulk scans per platform.
	ScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netposture",
			Name:      "scans_total",
			Help:      "Total number of bulk vulnerability scans",
		},
		[]string{"platform"},
	)

	// ScanDuration observes end-to-end scan latency.
	ScanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "netposture",
			Name:      "scan_duration_seconds",
			Help:      "Duration of bulk vulnerability scans",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"platform"},
	)

	// TierDropped counts records removed by each scanner tier.
	TierDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netposture",
			Name:      "scan_tier_dropped_total",
			Help:      "Records dropped by each scan filter tier",
		},
		[]string{"platform", "tier"},
	)

	// VerificationsTotal counts device verifications by final status.
	VerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netposture",
			Name:      "verifications_total",
			Help:      "Total number of device verifications by overall status",
		},
		[]string{"platform", "status"},
	)

	// VerifyDuration observes per-device verification latency.
	VerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "netposture",
			Name:      "verify_duration_seconds",
			Help:      "Duration of single-device verifications",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"platform"},
	)

	// CacheOps counts advisory cache hits, misses, writes and rejected
	// (below-threshold) writes.
	CacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netposture",
			Name:      "advisory_cache_ops_total",
			Help:      "Advisory cache operations by outcome",
		},
		[]string{"op"},
	)

	// SessionFailures counts device session failures per transport.
	SessionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "netposture",
			Name:      "session_failures_total",
			Help:      "Device session connect/command failures",
		},
		[]string{"transport"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// Idempotent; safe to call from every entry point.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(ScansTotal)
		prometheus.DefaultRegisterer.Register(ScanDuration)
		prometheus.DefaultRegisterer.Register(TierDropped)
		prometheus.DefaultRegisterer.Register(VerificationsTotal)
		prometheus.DefaultRegisterer.Register(VerifyDuration)
		prometheus.DefaultRegisterer.Register(CacheOps)
		prometheus.DefaultRegisterer.Register(SessionFailures)
	})
}
