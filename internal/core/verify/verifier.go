// Package verify implements the live device verification state machine: it
// fuses a version-range check and feature-presence probes against one device
// session into a four-way risk verdict.
package verify

import (
	"context"
	"log/slog"

	"github.com/WatchBeam/clock"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/netposture/netposture/internal/core/domain"
	"github.com/netposture/netposture/internal/core/features"
	"github.com/netposture/netposture/internal/core/ports"
	"github.com/netposture/netposture/internal/core/versions"
	"github.com/netposture/netposture/internal/telemetry"
)

// DefaultEvidenceCap bounds how many show commands run as evidence for a
// VULNERABLE verdict.
const DefaultEvidenceCap = 3

const runningConfigCommand = "show running-config"

// Verifier runs single-device verifications. Stateless between calls; one
// in-flight verification per session, independent devices in parallel.
type Verifier struct {
	matcher     *versions.Matcher
	detector    *features.Detector
	clock       clock.Clock
	logger      *slog.Logger
	tracer      trace.Tracer
	evidenceCap int
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithClock injects the time source.
func WithClock(c clock.Clock) Option {
	return func(v *Verifier) { v.clock = c }
}

// WithLogger injects the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// WithEvidenceCap overrides the evidence command bound.
func WithEvidenceCap(n int) Option {
	return func(v *Verifier) { v.evidenceCap = n }
}

// New builds a Verifier.
func New(opts ...Option) *Verifier {
	v := &Verifier{
		matcher:     versions.NewMatcher(),
		detector:    features.NewDetector(),
		clock:       clock.C,
		logger:      slog.Default(),
		tracer:      otel.Tracer("netposture/verify"),
		evidenceCap: DefaultEvidenceCap,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify runs the four-step state machine against one device session and
// always returns a structured result, never a bare error. The session is
// released on every exit path, including a failed Connect. A context
// deadline aborts in-flight commands and still guarantees the disconnect.
func (v *Verifier) Verify(ctx context.Context, session ports.DeviceSession, psirt domain.PSIRTAdvisory) domain.VerificationResult {
	ctx, span := v.tracer.Start(ctx, "verify.Verify",
		trace.WithAttributes(
			attribute.String("advisory_id", psirt.AdvisoryID),
			attribute.String("platform", string(psirt.Platform)),
		))
	defer span.End()

	start := v.clock.Now()
	result := domain.VerificationResult{
		VerificationID: uuid.NewString(),
		AdvisoryID:     psirt.AdvisoryID,
		Platform:       psirt.Platform,
	}
	defer func() {
		result.DurationMs = v.clock.Now().Sub(start).Milliseconds()
		telemetry.VerificationsTotal.
			WithLabelValues(string(psirt.Platform), string(result.OverallStatus)).Inc()
		telemetry.VerifyDuration.
			WithLabelValues(string(psirt.Platform)).
			Observe(v.clock.Now().Sub(start).Seconds())
	}()

	// Release the session on every exit path. Disconnect is idempotent
	// and safe after a failed Connect.
	defer func() {
		if err := session.Disconnect(); err != nil {
			v.logger.Warn("session disconnect failed", "error", err)
		}
	}()

	if err := session.Connect(ctx); err != nil {
		connErr := domain.NewConnectionError(hostOf(session), err)
		v.logger.Error("device connection failed",
			"advisory_id", psirt.AdvisoryID, "error", connErr)
		result.OverallStatus = domain.StatusError
		result.Reason = connErr.Error()
		span.RecordError(connErr)
		return result
	}

	if hostname, err := session.Hostname(ctx); err == nil {
		result.Hostname = hostname
	} else {
		v.logger.Warn("could not read device hostname", "error", err)
	}

	// Step 1: version check, tri-state.
	verdict, done := v.checkVersion(ctx, session, psirt, &result)
	if done {
		return result
	}

	// Step 2: feature presence against running configuration.
	if done := v.checkFeatures(ctx, session, psirt, &result); done {
		return result
	}

	// Step 3: verdict from the decision table.
	result.OverallStatus, result.Reason = decide(verdict, result.FeatureCheck.Present)

	// Step 4: evidence, only for a confirmed verdict.
	if result.OverallStatus == domain.StatusVulnerable {
		v.collectEvidence(ctx, session, psirt, &result)
	}

	v.logger.Info("device verification complete",
		"verification_id", result.VerificationID,
		"advisory_id", psirt.AdvisoryID,
		"hostname", result.Hostname,
		"status", result.OverallStatus)

	return result
}

// checkVersion resolves the tri-state version verdict. The second return is
// true when the verification short-circuited and result is final.
func (v *Verifier) checkVersion(ctx context.Context, session ports.DeviceSession, psirt domain.PSIRTAdvisory, result *domain.VerificationResult) (domain.VersionVerdict, bool) {
	if len(psirt.ProductNames) == 0 {
		result.VersionCheck = domain.VersionCheck{
			Affected: domain.VersionUnknown,
			Reason:   "advisory carries no affected product data",
		}
		return domain.VersionUnknown, false
	}

	deviceVersion, err := session.Version(ctx)
	if err != nil {
		result.OverallStatus = domain.StatusError
		result.Reason = "could not read device version: " + err.Error()
		return domain.VersionUnknown, true
	}

	check := v.matcher.IsAffected(deviceVersion, psirt.Platform, psirt.ProductNames)
	result.VersionCheck = check

	switch {
	case check.Affected == domain.VersionAffected:
		return domain.VersionAffected, false
	case len(check.CheckedVersions) > 0:
		// Real range data existed and the device is outside every
		// train: short-circuit, no feature check needed.
		result.OverallStatus = domain.StatusNotVulnerable
		result.Reason = check.Reason
		return domain.VersionNotAffected, true
	default:
		// No usable range data; fall through to feature evidence.
		result.VersionCheck.Affected = domain.VersionUnknown
		return domain.VersionUnknown, false
	}
}

// checkFeatures fills result.FeatureCheck from the advisory's config probes.
// The second return is true when a session failure made the result final.
func (v *Verifier) checkFeatures(ctx context.Context, session ports.DeviceSession, psirt domain.PSIRTAdvisory, result *domain.VerificationResult) bool {
	result.FeatureCheck.Present = []string{}
	result.FeatureCheck.Absent = []string{}

	if len(psirt.ConfigPatterns) == 0 {
		result.FeatureCheck.Reason = "no feature checks available"
		return false
	}

	config, err := session.SendCommand(ctx, runningConfigCommand)
	if err != nil {
		result.OverallStatus = domain.StatusError
		result.Reason = "could not retrieve running configuration: " + err.Error()
		return true
	}

	for _, probe := range features.CompilePairs(v.logger, psirt.Labels, psirt.ConfigPatterns) {
		if v.detector.PresentProbe(config, probe) {
			result.FeatureCheck.Present = append(result.FeatureCheck.Present, probe.Label)
		} else {
			result.FeatureCheck.Absent = append(result.FeatureCheck.Absent, probe.Label)
		}
	}
	return false
}

// decide applies the verdict table to the resolved version state and the
// detected features.
func decide(verdict domain.VersionVerdict, featuresPresent []string) (domain.OverallStatus, string) {
	switch {
	case verdict == domain.VersionAffected && len(featuresPresent) > 0:
		return domain.StatusVulnerable,
			"device version is in an affected train and vulnerable features are configured"
	case verdict == domain.VersionAffected:
		return domain.StatusNotVulnerable,
			"device version is in an affected train but no vulnerable feature is configured"
	case len(featuresPresent) > 0:
		return domain.StatusPotentiallyVuln,
			"version exposure unknown but vulnerable features are configured"
	default:
		return domain.StatusLikelyNotVulnerable,
			"version exposure unknown and no vulnerable feature is configured"
	}
}

// collectEvidence runs up to evidenceCap of the advisory's show commands and
// attaches their raw output. Best effort: a failing command is logged and
// skipped, the verdict stands.
func (v *Verifier) collectEvidence(ctx context.Context, session ports.DeviceSession, psirt domain.PSIRTAdvisory, result *domain.VerificationResult) {
	commands := psirt.ShowCommands
	if len(commands) > v.evidenceCap {
		commands = commands[:v.evidenceCap]
	}
	for _, cmd := range commands {
		output, err := session.SendCommand(ctx, cmd)
		if err != nil {
			v.logger.Warn("evidence command failed", "command", cmd, "error", err)
			continue
		}
		result.Evidence = append(result.Evidence, domain.CommandEvidence{
			Command: cmd,
			Output:  output,
		})
	}
}

// hostOf extracts a host label for error messages when the session exposes
// one.
func hostOf(session ports.DeviceSession) string {
	type hoster interface{ Host() string }
	if h, ok := session.(hoster); ok {
		return h.Host()
	}
	return "unknown"
}
