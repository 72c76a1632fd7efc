package store

import (
	"fmt"
)

// migrate runs all pending migrations
func (s *Store) migrate() error {
	createMigrationsTableSQL := `
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY,
			version INTEGER NOT NULL UNIQUE,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`

	if _, err := s.db.Exec(createMigrationsTableSQL); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var currentVersion int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current migration version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", m.version, err)
		}
		if _, err := s.db.Exec("INSERT INTO migrations (version) VALUES (?)", m.version); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", m.version, err)
		}
		s.logger.Debug("applied migration", "version", m.version)
	}

	return nil
}

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE IF NOT EXISTS archive_runs (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				folder_id TEXT NOT NULL,
				folder_name TEXT NOT NULL DEFAULT '',
				archive_name TEXT NOT NULL DEFAULT '',
				files_archived INTEGER NOT NULL DEFAULT 0,
				files_skipped INTEGER NOT NULL DEFAULT 0,
				files_failed INTEGER NOT NULL DEFAULT 0,
				bytes_archived INTEGER NOT NULL DEFAULT 0,
				archive_size INTEGER NOT NULL DEFAULT 0,
				uploaded_file_id TEXT NOT NULL DEFAULT '',
				status TEXT NOT NULL DEFAULT 'running',
				error_message TEXT NOT NULL DEFAULT '',
				start_time DATETIME NOT NULL,
				end_time DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_archive_runs_start_time ON archive_runs(start_time);
		`,
	},
}
