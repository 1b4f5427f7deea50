// Package storage implements the vulnerability record store on SQLite via
// GORM. The matching engine only reads from it; writes happen through the
// seed loader.
package storage

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/netposture/netposture/internal/core/domain"
)

// Store implements ports.VulnerabilityStore using GORM and SQLite.
type Store struct {
	db *gorm.DB
}

// New opens (or creates) the store at path and migrates its schema.
func New(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open vulnerability store: %w", err)
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, fmt.Errorf("register tracing plugin: %w", err)
	}

	if err := db.AutoMigrate(&recordModel{}); err != nil {
		return nil, fmt.Errorf("migrate vulnerability store: %w", err)
	}

	// Indices for the hot query path
	db.Exec("CREATE INDEX IF NOT EXISTS idx_vuln_platform_type ON record_models(platform, vuln_type)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_vuln_severity ON record_models(severity)")

	return &Store{db: db}, nil
}

// FindByPlatform returns all records of one type for one platform. Failures
// surface as *domain.StorageError so callers can tell an unreachable store
// apart from an empty result.
func (s *Store) FindByPlatform(ctx context.Context, platform domain.Platform, vulnType domain.VulnType) ([]domain.VulnerabilityRecord, error) {
	var models []recordModel
	err := s.db.WithContext(ctx).
		Where("platform = ? AND vuln_type = ?", string(platform), string(vulnType)).
		Order("severity ASC").
		Find(&models).Error
	if err != nil {
		return nil, domain.NewStorageError("find by platform", err)
	}

	records := make([]domain.VulnerabilityRecord, 0, len(models))
	for _, m := range models {
		rec, err := toDomain(m)
		if err != nil {
			return nil, domain.NewStorageError("decode record "+m.ID, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// CountRecords returns the total number of stored records.
func (s *Store) CountRecords(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&recordModel{}).Count(&count).Error; err != nil {
		return 0, domain.NewStorageError("count records", err)
	}
	return count, nil
}

// UpsertRecords inserts or replaces records in one transaction. Used by the
// seed loader only; the engine never calls it.
func (s *Store) UpsertRecords(ctx context.Context, records []domain.VulnerabilityRecord) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]recordModel, 0, len(records))
	for _, rec := range records {
		m, err := toModel(rec)
		if err != nil {
			return domain.NewStorageError("encode record "+rec.ID, err)
		}
		models = append(models, m)
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).
			CreateInBatches(models, 100).Error
	})
	if err != nil {
		return domain.NewStorageError("upsert records", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
