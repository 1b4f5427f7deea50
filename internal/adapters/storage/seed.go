package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/netposture/netposture/internal/core/domain"
)

// SeedFile is the on-disk seed format: a flat list of vulnerability records.
type SeedFile struct {
	Records []domain.VulnerabilityRecord `json:"records"`
}

// SeedLoader bulk-loads vulnerability records from a JSON seed file.
type SeedLoader struct {
	store  *Store
	logger *slog.Logger
}

// NewSeedLoader builds a loader over the given store.
func NewSeedLoader(store *Store, logger *slog.Logger) *SeedLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeedLoader{store: store, logger: logger}
}

// LoadFromFile reads a seed file and upserts every valid record. Records
// with an unknown platform or missing ID are skipped with a warning rather
// than aborting the load.
func (l *SeedLoader) LoadFromFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read seed file: %w", err)
	}

	var seed SeedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return 0, fmt.Errorf("parse seed file: %w", err)
	}

	valid := make([]domain.VulnerabilityRecord, 0, len(seed.Records))
	for _, rec := range seed.Records {
		if rec.ID == "" {
			l.logger.Warn("skipping seed record without id")
			continue
		}
		if !rec.Platform.Valid() {
			l.logger.Warn("skipping seed record with unknown platform",
				"record", rec.ID, "platform", rec.Platform)
			continue
		}
		if rec.VulnType != domain.VulnTypeBug && rec.VulnType != domain.VulnTypePSIRT {
			l.logger.Warn("skipping seed record with unknown type",
				"record", rec.ID, "type", rec.VulnType)
			continue
		}
		valid = append(valid, rec)
	}

	if err := l.store.UpsertRecords(ctx, valid); err != nil {
		return 0, err
	}

	l.logger.Info("seed load complete",
		"file", path, "loaded", len(valid), "skipped", len(seed.Records)-len(valid))
	return len(valid), nil
}
