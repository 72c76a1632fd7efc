package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drivekit/gdarch/internal/archive"
	"github.com/drivekit/gdarch/internal/drive"
)

// ErrNoFiles is returned when enumeration finds nothing downloadable.
// An archive of nothing is a user-facing failure, not a vacuous
// success, and no archive file is created in that case.
var ErrNoFiles = errors.New("no files found in folder")

// Status tags the outcome of one enumerated file.
type Status string

const (
	StatusTransferred Status = "transferred"
	StatusSkipped     Status = "skipped"
	StatusFailed      Status = "failed"
)

// FileResult records the outcome for one file in the run.
type FileResult struct {
	Path   string
	Size   int64
	Status Status
	Reason string
}

// Report summarizes a completed run.
type Report struct {
	ArchivePath   string
	Files         []FileResult
	Transferred   int
	Failed        int
	Skipped       int
	TotalBytes    int64 // declared bytes across enumerated files
	BytesArchived int64 // declared bytes of files that made it in
	Duration      time.Duration
}

// ProgressFunc is called after each file completes successfully.
// processed is the cumulative declared bytes archived so far, total is
// the declared byte sum across all enumerated files.
type ProgressFunc func(processed, total int64)

// Archiver streams a remote folder tree into a local compressed
// archive, one file at a time in enumeration order.
type Archiver struct {
	client *drive.Client
	codec  archive.Codec
	logger *slog.Logger

	// OnProgress, when set, observes cumulative progress.
	OnProgress ProgressFunc
}

// New creates an Archiver writing archives with the given codec.
func New(client *drive.Client, codec archive.Codec, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{
		client: client,
		codec:  codec,
		logger: logger,
	}
}

// Run enumerates folderID and writes the archive at archivePath.
// Per-file fetch and write errors are absorbed: the file is recorded
// as failed and the run continues. Empty enumeration and archive
// creation failures are fatal.
func (a *Archiver) Run(ctx context.Context, folderID, archivePath string) (*Report, error) {
	start := time.Now()

	a.logger.Info("retrieving file list", "folder_id", folderID)
	entries, stats, err := a.client.Walk(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("listing folder %s: %w", folderID, err)
	}
	if len(entries) == 0 {
		return nil, ErrNoFiles
	}
	a.logger.Info("file list complete",
		"files", len(entries),
		"skipped", len(stats.Skipped),
		"total_bytes", stats.TotalBytes,
	)

	w, err := archive.NewWriter(archivePath, a.codec)
	if err != nil {
		return nil, fmt.Errorf("creating archive: %w", err)
	}

	report := &Report{
		ArchivePath: archivePath,
		TotalBytes:  stats.TotalBytes,
		Skipped:     len(stats.Skipped),
	}
	for _, sk := range stats.Skipped {
		report.Files = append(report.Files, FileResult{
			Path:   sk.Path,
			Status: StatusSkipped,
			Reason: sk.Reason,
		})
	}

	var processed int64
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("run cancelled: %w", err)
		}

		percent := 100.0
		if stats.TotalBytes > 0 {
			percent = float64(processed) * 100 / float64(stats.TotalBytes)
		}
		a.logger.Info("adding to archive",
			"path", entry.RelativePath,
			"bytes", entry.Size,
			"percent", fmt.Sprintf("%.1f", percent),
		)

		res := a.transfer(ctx, w, entry)
		report.Files = append(report.Files, res)
		if res.Status == StatusTransferred {
			processed += entry.Size
			report.Transferred++
			report.BytesArchived += entry.Size
			if a.OnProgress != nil {
				a.OnProgress(processed, stats.TotalBytes)
			}
		} else {
			report.Failed++
		}
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}

	report.Duration = time.Since(start)
	a.logger.Info("archive complete",
		"path", archivePath,
		"transferred", report.Transferred,
		"failed", report.Failed,
		"bytes", report.BytesArchived,
		"duration", report.Duration.Round(time.Millisecond),
	)
	return report, nil
}

// transfer streams one file into the open archive. The response body
// is capped at the declared size so the tar entry's bookkeeping holds
// even when the remote stream offers more.
func (a *Archiver) transfer(ctx context.Context, w *archive.Writer, entry drive.Entry) FileResult {
	res := FileResult{Path: entry.RelativePath, Size: entry.Size}

	body, err := a.client.Fetch(ctx, entry.ID)
	if err != nil {
		a.logger.Warn("download failed, skipping file", "path", entry.RelativePath, "error", err)
		res.Status = StatusFailed
		res.Reason = err.Error()
		return res
	}
	defer body.Close()

	if err := w.Add(entry.RelativePath, entry.Size, archive.NewBoundedReader(body, entry.Size)); err != nil {
		a.logger.Warn("failed to add file to archive", "path", entry.RelativePath, "error", err)
		res.Status = StatusFailed
		res.Reason = err.Error()
		return res
	}

	res.Status = StatusTransferred
	return res
}
