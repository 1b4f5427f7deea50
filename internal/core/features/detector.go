// Package features evaluates regex probes against retrieved device
// configuration text. Probes are compiled and validated once at load time; a
// malformed pattern skips that single probe, never the whole pass.
package features

import (
	"log/slog"
	"regexp"
	"strings"
)

// Probe is one compiled feature check: a taxonomy label paired with the
// pattern that detects it in running configuration.
type Probe struct {
	Label   string
	Pattern *regexp.Regexp
}

// Compile compiles a single probe pattern with case-insensitive multiline
// semantics, so ^ and $ anchor per config line rather than per blob.
func Compile(pattern string) (*regexp.Regexp, error) {
	if !strings.HasPrefix(pattern, "(?") {
		pattern = "(?im)" + pattern
	}
	return regexp.Compile(pattern)
}

// CompilePairs pairs labels with patterns positionally and compiles them. A
// pattern that fails to compile is logged and skipped; the remaining probes
// still run. Patterns beyond the label list get a positional label.
func CompilePairs(logger *slog.Logger, labels, patterns []string) []Probe {
	if logger == nil {
		logger = slog.Default()
	}

	probes := make([]Probe, 0, len(patterns))
	for i, pattern := range patterns {
		label := pattern
		if i < len(labels) {
			label = labels[i]
		}
		re, err := Compile(pattern)
		if err != nil {
			logger.Warn("skipping malformed feature probe",
				"label", label, "pattern", pattern, "error", err)
			continue
		}
		probes = append(probes, Probe{Label: label, Pattern: re})
	}
	return probes
}

// Detector matches compiled probes against configuration text. Stateless and
// safe for unrestricted concurrent use.
type Detector struct{}

// NewDetector returns a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// Present reports whether any pattern matches anywhere in configText. Empty
// config text or an empty pattern list is never a match.
func (d *Detector) Present(configText string, patterns []*regexp.Regexp) bool {
	if configText == "" || len(patterns) == 0 {
		return false
	}
	for _, re := range patterns {
		if re != nil && re.MatchString(configText) {
			return true
		}
	}
	return false
}

// PresentProbe evaluates one compiled probe against configText.
func (d *Detector) PresentProbe(configText string, probe Probe) bool {
	return d.Present(configText, []*regexp.Regexp{probe.Pattern})
}
