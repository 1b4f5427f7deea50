// Package taxonomy loads the per-platform feature label catalog from a JSON
// file and validates its regex probes at load time, so malformed patterns
// surface once at startup instead of during a detection pass.
package taxonomy

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/netposture/netposture/internal/core/domain"
	"github.com/netposture/netposture/internal/core/features"
)

// Provider implements ports.TaxonomyProvider over a static JSON catalog:
// a map of platform identifier to ordered FeatureLabel list.
type Provider struct {
	labels map[domain.Platform][]domain.FeatureLabel
	logger *slog.Logger
}

// LoadFile reads and validates a taxonomy catalog. A pattern that does not
// compile is dropped from its label with a warning; the label itself and the
// rest of the catalog stay usable.
func LoadFile(path string, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy file: %w", err)
	}

	var raw map[string][]domain.FeatureLabel
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse taxonomy file: %w", err)
	}

	provider := &Provider{
		labels: make(map[domain.Platform][]domain.FeatureLabel, len(raw)),
		logger: logger,
	}
	for platformStr, entries := range raw {
		platform := domain.Platform(platformStr)
		if !platform.Valid() {
			logger.Warn("skipping taxonomy entries for unknown platform", "platform", platformStr)
			continue
		}
		validated := make([]domain.FeatureLabel, 0, len(entries))
		for _, entry := range entries {
			entry.ConfigRegex = validatePatterns(logger, entry.Label, entry.ConfigRegex)
			validated = append(validated, entry)
		}
		provider.labels[platform] = validated
	}
	return provider, nil
}

// validatePatterns keeps only the patterns that compile under the detector's
// case-insensitive multiline semantics.
func validatePatterns(logger *slog.Logger, label string, patterns []string) []string {
	valid := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if _, err := features.Compile(pattern); err != nil {
			logger.Warn("dropping malformed taxonomy pattern",
				"label", label, "pattern", pattern, "error", err)
			continue
		}
		valid = append(valid, pattern)
	}
	return valid
}

// LabelsFor returns the ordered feature label list for one platform. An
// unknown or uncataloged platform yields an empty list, not an error.
func (p *Provider) LabelsFor(platform domain.Platform) ([]domain.FeatureLabel, error) {
	return p.labels[platform], nil
}
