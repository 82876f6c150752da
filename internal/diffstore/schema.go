package diffstore

import (
	"fmt"
	"log/slog"
	"time"
)

// currentSchemaVersion is the current database schema version.
// Increment this when making schema changes and add a migration.
const currentSchemaVersion = 2

// initSchema creates the schema_version table and applies every migration
// newer than the recorded version.
func (s *Store) initSchema() error {
	const schemaVersionTable = `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schemaVersionTable); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("check schema version: %w", err)
	}

	migrations := []func() error{s.migrateToV1, s.migrateToV2}
	for i, migrate := range migrations {
		target := i + 1
		if version >= target {
			continue
		}
		if err := migrate(); err != nil {
			return fmt.Errorf("migrate to v%d: %w", target, err)
		}
		if err := s.recordMigration(target); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) recordMigration(version int) error {
	_, err := s.db.Exec(
		"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		version,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record migration %d: %w", version, err)
	}
	return nil
}

// migrateToV1 creates the diffsets and filediffs tables.
func (s *Store) migrateToV1() error {
	slog.Debug("[DEBUG-STORE] applying migration", "version", 1)

	const tables = `
		CREATE TABLE IF NOT EXISTS diffsets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			preamble BLOB NOT NULL
		);

		CREATE TABLE IF NOT EXISTS filediffs (
			diffset_id TEXT NOT NULL REFERENCES diffsets(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			orig_path TEXT NOT NULL,
			new_path TEXT NOT NULL,
			orig_revision TEXT NOT NULL,
			new_revision TEXT NOT NULL DEFAULT '',
			old_mode TEXT NOT NULL DEFAULT '',
			new_mode TEXT NOT NULL DEFAULT '',
			similarity TEXT NOT NULL DEFAULT '',
			header BLOB NOT NULL,
			data BLOB NOT NULL,
			is_new INTEGER NOT NULL DEFAULT 0,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			is_moved INTEGER NOT NULL DEFAULT 0,
			is_copied INTEGER NOT NULL DEFAULT 0,
			is_binary INTEGER NOT NULL DEFAULT 0,
			is_mode_change_only INTEGER NOT NULL DEFAULT 0,
			insert_count INTEGER NOT NULL DEFAULT 0,
			delete_count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (diffset_id, position)
		);

		CREATE INDEX IF NOT EXISTS idx_filediffs_new_path ON filediffs(new_path);
	`
	if _, err := s.db.Exec(tables); err != nil {
		return fmt.Errorf("create diff tables: %w", err)
	}
	return nil
}

// migrateToV2 adds per-set totals so listings do not scan filediffs.
func (s *Store) migrateToV2() error {
	slog.Debug("[DEBUG-STORE] applying migration", "version", 2)

	stmts := []string{
		"ALTER TABLE diffsets ADD COLUMN file_count INTEGER NOT NULL DEFAULT 0",
		"ALTER TABLE diffsets ADD COLUMN insert_total INTEGER NOT NULL DEFAULT 0",
		"ALTER TABLE diffsets ADD COLUMN delete_total INTEGER NOT NULL DEFAULT 0",
		`UPDATE diffsets SET
			file_count = (SELECT COUNT(*) FROM filediffs WHERE diffset_id = diffsets.id),
			insert_total = (SELECT COALESCE(SUM(insert_count), 0) FROM filediffs WHERE diffset_id = diffsets.id),
			delete_total = (SELECT COALESCE(SUM(delete_count), 0) FROM filediffs WHERE diffset_id = diffsets.id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("add diff set totals: %w", err)
		}
	}
	return nil
}
