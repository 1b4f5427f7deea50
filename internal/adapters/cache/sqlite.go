package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/netposture/netposture/internal/core/domain"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS advisory_cache (
	advisory_id      TEXT NOT NULL,
	platform         TEXT NOT NULL,
	predicted_labels TEXT NOT NULL DEFAULT '[]',
	confidence       REAL NOT NULL,
	config_regex     TEXT NOT NULL DEFAULT '[]',
	show_commands    TEXT NOT NULL DEFAULT '[]',
	cached_at        TEXT NOT NULL,
	PRIMARY KEY (advisory_id, platform)
);
`

// SQLite is a durable AdvisoryCache on a local SQLite file. The composite
// primary key enforces platform isolation; the ON CONFLICT upsert makes
// concurrent writes for the same key converge on an update.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the cache database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	// WAL for concurrent readers alongside the writer
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Get returns the entry for the exact composite key, or (nil, nil) on miss.
func (s *SQLite) Get(ctx context.Context, advisoryID string, platform domain.Platform) (*domain.AdvisoryCacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT advisory_id, platform, predicted_labels, confidence, config_regex, show_commands, cached_at
		FROM advisory_cache
		WHERE advisory_id = ? AND platform = ?`,
		advisoryID, string(platform))

	var (
		entry           domain.AdvisoryCacheEntry
		platformStr     string
		labelsJSON      string
		regexJSON       string
		commandsJSON    string
		cachedAtRFC3339 string
	)
	err := row.Scan(&entry.AdvisoryID, &platformStr, &labelsJSON,
		&entry.Confidence, &regexJSON, &commandsJSON, &cachedAtRFC3339)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}

	entry.Platform = domain.Platform(platformStr)
	if err := json.Unmarshal([]byte(labelsJSON), &entry.PredictedLabels); err != nil {
		return nil, fmt.Errorf("decode cached labels: %w", err)
	}
	if err := json.Unmarshal([]byte(regexJSON), &entry.ConfigRegex); err != nil {
		return nil, fmt.Errorf("decode cached patterns: %w", err)
	}
	if err := json.Unmarshal([]byte(commandsJSON), &entry.ShowCommands); err != nil {
		return nil, fmt.Errorf("decode cached commands: %w", err)
	}
	if entry.CachedAt, err = time.Parse(time.RFC3339, cachedAtRFC3339); err != nil {
		return nil, fmt.Errorf("decode cache timestamp: %w", err)
	}
	return &entry, nil
}

// Put inserts or replaces the entry under its composite key.
func (s *SQLite) Put(ctx context.Context, entry domain.AdvisoryCacheEntry) error {
	labelsJSON, err := json.Marshal(sliceOrEmpty(entry.PredictedLabels))
	if err != nil {
		return fmt.Errorf("encode cached labels: %w", err)
	}
	regexJSON, err := json.Marshal(sliceOrEmpty(entry.ConfigRegex))
	if err != nil {
		return fmt.Errorf("encode cached patterns: %w", err)
	}
	commandsJSON, err := json.Marshal(sliceOrEmpty(entry.ShowCommands))
	if err != nil {
		return fmt.Errorf("encode cached commands: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO advisory_cache (
			advisory_id, platform, predicted_labels, confidence, config_regex, show_commands, cached_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(advisory_id, platform) DO UPDATE SET
			predicted_labels = excluded.predicted_labels,
			confidence       = excluded.confidence,
			config_regex     = excluded.config_regex,
			show_commands    = excluded.show_commands,
			cached_at        = excluded.cached_at`,
		entry.AdvisoryID, string(entry.Platform), string(labelsJSON),
		entry.Confidence, string(regexJSON), string(commandsJSON),
		entry.CachedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cache upsert: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (s *SQLite) Len(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM advisory_cache").Scan(&count); err != nil {
		return 0, fmt.Errorf("cache count: %w", err)
	}
	return count, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

func sliceOrEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
