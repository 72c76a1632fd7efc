package store

import "time"

// ArchiveRun records one archival execution
type ArchiveRun struct {
	ID             int64
	FolderID       string
	FolderName     string
	ArchiveName    string
	FilesArchived  int
	FilesSkipped   int
	FilesFailed    int
	BytesArchived  int64
	ArchiveSize    int64
	UploadedFileID string
	Status         string // "running", "success", "partial", "failed"
	ErrorMessage   string
	StartTime      time.Time
	EndTime        time.Time
}
