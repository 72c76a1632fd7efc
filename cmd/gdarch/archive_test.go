package main

import (
	"archive/tar"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

// resetArchiveFlags clears package-level flag state between tests.
func resetArchiveFlags() {
	archiveFolderID = ""
	archiveTokenJSON = ""
	archiveTokenFile = ""
	archiveName = ""
	archiveOutputDir = ""
	archiveCompression = ""
	archiveDelete = false
	archiveKeepLocal = false
	cfgPath = ""
	globalCfg = nil
}

func TestTokenSourceFlagValidation(t *testing.T) {
	resetArchiveFlags()
	if _, err := tokenSource(); err == nil {
		t.Error("expected error when no token flags are set")
	}

	archiveTokenJSON = `{"token": "t"}`
	archiveTokenFile = "token.json"
	if _, err := tokenSource(); err == nil {
		t.Error("expected error when both token flags are set")
	}
	resetArchiveFlags()
}

func TestArchiveCommandEndToEnd(t *testing.T) {
	resetArchiveFlags()
	defer resetArchiveFlags()

	content := []byte("file body for the end to end run")
	var uploaded []byte
	var uploadedName string
	var deleted []string

	mux := http.NewServeMux()
	mux.HandleFunc("/drive/files", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer e2e-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = fmt.Fprintf(w, `{"files": [{"id": "f1", "name": "doc.bin", "mimeType": "application/octet-stream", "size": "%d"}]}`, len(content))
	})
	mux.HandleFunc("/drive/files/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/drive/files/")
		switch {
		case r.Method == http.MethodDelete:
			deleted = append(deleted, id)
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Query().Get("alt") == "media":
			_, _ = w.Write(content)
		default:
			_, _ = fmt.Fprintf(w, `{"id": %q, "name": "My Folder", "parents": ["parent-1"]}`, id)
		}
	})
	mux.HandleFunc("/upload/files", func(w http.ResponseWriter, r *http.Request) {
		_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil {
			t.Errorf("parsing upload content type: %v", err)
			return
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		metaPart, err := mr.NextPart()
		if err != nil {
			t.Errorf("reading metadata part: %v", err)
			return
		}
		var meta struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(metaPart).Decode(&meta)
		uploadedName = meta.Name
		bodyPart, err := mr.NextPart()
		if err != nil {
			t.Errorf("reading content part: %v", err)
			return
		}
		uploaded, _ = io.ReadAll(bodyPart)
		_, _ = fmt.Fprint(w, `{"id": "new-archive-id"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "gdarch.yaml")
	configYAML := fmt.Sprintf(`
drive:
  api_base_url: %s/drive
  upload_base_url: %s/upload
store:
  db_path: %s
`, server.URL, server.URL, filepath.Join(tmpDir, "gdarch.db"))
	if err := os.WriteFile(configFile, []byte(configYAML), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	outDir := filepath.Join(tmpDir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatalf("creating output dir: %v", err)
	}

	cmd := NewRootCmd()
	cmd.SetArgs([]string{
		"archive",
		"--config", configFile,
		"--folder-id", "folder-1",
		"--token", `{"token": "e2e-token"}`,
		"--output", outDir,
		"--keep-local",
		"--delete-folder",
		"--quiet",
	})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if uploadedName != "My Folder.tar.xz" {
		t.Errorf("expected upload named 'My Folder.tar.xz', got %q", uploadedName)
	}
	if len(deleted) != 1 || deleted[0] != "folder-1" {
		t.Errorf("expected folder-1 deleted, got %v", deleted)
	}

	// The uploaded bytes are a valid tar.xz holding the one file.
	xr, err := xz.NewReader(bytes.NewReader(uploaded))
	if err != nil {
		t.Fatalf("uploaded archive is not valid xz: %v", err)
	}
	tr := tar.NewReader(xr)
	hdr, err := tr.Next()
	if err != nil {
		t.Fatalf("reading uploaded tar: %v", err)
	}
	if hdr.Name != "doc.bin" {
		t.Errorf("expected entry doc.bin, got %s", hdr.Name)
	}
	got, _ := io.ReadAll(tr)
	if !bytes.Equal(got, content) {
		t.Errorf("uploaded content mismatch")
	}

	// The local archive survives --keep-local.
	if _, err := os.Stat(filepath.Join(outDir, "My Folder.tar.xz")); err != nil {
		t.Errorf("expected local archive to remain: %v", err)
	}
}
