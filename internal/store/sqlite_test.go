package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := New(filepath.Join(t.TempDir(), "gdarch.db"), logger)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func TestCreateAndUpdateArchiveRun(t *testing.T) {
	s := newTestStore(t)

	run := &ArchiveRun{
		FolderID:  "folder-1",
		Status:    "running",
		StartTime: time.Now().UTC(),
		EndTime:   time.Time{},
	}
	if err := s.CreateArchiveRun(run); err != nil {
		t.Fatalf("CreateArchiveRun: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("expected run ID to be set")
	}

	run.FolderName = "My Photos"
	run.ArchiveName = "My Photos.tar.xz"
	run.FilesArchived = 12
	run.FilesFailed = 1
	run.BytesArchived = 4096
	run.Status = "partial"
	run.EndTime = time.Now().UTC()
	if err := s.UpdateArchiveRun(run); err != nil {
		t.Fatalf("UpdateArchiveRun: %v", err)
	}

	runs, err := s.ListArchiveRuns(10)
	if err != nil {
		t.Fatalf("ListArchiveRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	got := runs[0]
	if got.FolderName != "My Photos" || got.FilesArchived != 12 || got.Status != "partial" {
		t.Errorf("unexpected run: %+v", got)
	}
}

func TestUpdateMissingRun(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateArchiveRun(&ArchiveRun{ID: 999, StartTime: time.Now(), EndTime: time.Now()})
	if err == nil {
		t.Fatal("expected error for missing run")
	}
}

func TestListArchiveRunsLimit(t *testing.T) {
	s := newTestStore(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		run := &ArchiveRun{
			FolderID:  "folder",
			Status:    "success",
			StartTime: base.Add(time.Duration(i) * time.Minute),
			EndTime:   base.Add(time.Duration(i+1) * time.Minute),
		}
		if err := s.CreateArchiveRun(run); err != nil {
			t.Fatalf("CreateArchiveRun: %v", err)
		}
	}

	runs, err := s.ListArchiveRuns(3)
	if err != nil {
		t.Fatalf("ListArchiveRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	// Newest first
	if !runs[0].StartTime.After(runs[1].StartTime) {
		t.Error("expected runs sorted newest first")
	}
}
