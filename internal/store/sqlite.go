package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for run history
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// New creates a new Store, opening the SQLite database and running migrations
func New(dbPath string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logger.Debug("store initialized", "path", dbPath)
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// CreateArchiveRun inserts a new ArchiveRun and sets its ID
func (s *Store) CreateArchiveRun(run *ArchiveRun) error {
	const query = `
		INSERT INTO archive_runs (
			folder_id, folder_name, archive_name, files_archived, files_skipped,
			files_failed, bytes_archived, archive_size, uploaded_file_id,
			status, error_message, start_time, end_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.Exec(
		query,
		run.FolderID, run.FolderName, run.ArchiveName, run.FilesArchived,
		run.FilesSkipped, run.FilesFailed, run.BytesArchived, run.ArchiveSize,
		run.UploadedFileID, run.Status, run.ErrorMessage, run.StartTime, run.EndTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert archive run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	run.ID = id
	return nil
}

// UpdateArchiveRun updates an existing ArchiveRun by ID
func (s *Store) UpdateArchiveRun(run *ArchiveRun) error {
	const query = `
		UPDATE archive_runs SET
			folder_id = ?, folder_name = ?, archive_name = ?, files_archived = ?,
			files_skipped = ?, files_failed = ?, bytes_archived = ?, archive_size = ?,
			uploaded_file_id = ?, status = ?, error_message = ?, start_time = ?, end_time = ?
		WHERE id = ?
	`

	result, err := s.db.Exec(
		query,
		run.FolderID, run.FolderName, run.ArchiveName, run.FilesArchived,
		run.FilesSkipped, run.FilesFailed, run.BytesArchived, run.ArchiveSize,
		run.UploadedFileID, run.Status, run.ErrorMessage, run.StartTime, run.EndTime,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update archive run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("archive run not found: %d", run.ID)
	}

	return nil
}

// ListArchiveRuns retrieves the most recent runs, newest first
func (s *Store) ListArchiveRuns(limit int) ([]ArchiveRun, error) {
	query := `
		SELECT id, folder_id, folder_name, archive_name, files_archived,
		       files_skipped, files_failed, bytes_archived, archive_size,
		       uploaded_file_id, status, error_message, start_time, end_time
		FROM archive_runs
		ORDER BY start_time DESC
	`
	var args []interface{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query archive runs: %w", err)
	}
	defer rows.Close()

	var runs []ArchiveRun
	for rows.Next() {
		var run ArchiveRun
		if err := rows.Scan(
			&run.ID, &run.FolderID, &run.FolderName, &run.ArchiveName,
			&run.FilesArchived, &run.FilesSkipped, &run.FilesFailed,
			&run.BytesArchived, &run.ArchiveSize, &run.UploadedFileID,
			&run.Status, &run.ErrorMessage, &run.StartTime, &run.EndTime,
		); err != nil {
			return nil, fmt.Errorf("failed to scan archive run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate archive runs: %w", err)
	}

	return runs, nil
}
