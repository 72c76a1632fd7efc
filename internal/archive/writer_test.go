package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// readArchive decompresses and lists an archive produced by Writer.
func readArchive(t *testing.T, path string, codec Codec) map[string][]byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading archive: %v", err)
	}

	var raw io.Reader
	switch codec {
	case CodecZstd:
		dec, err := zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("creating zstd reader: %v", err)
		}
		defer dec.Close()
		raw = dec
	default:
		raw, err = xz.NewReader(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("creating xz reader: %v", err)
		}
	}

	entries := make(map[string][]byte)
	tr := tar.NewReader(raw)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("reading tar entry: %v", err)
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			t.Fatalf("reading entry content: %v", err)
		}
		if int64(len(content)) != hdr.Size {
			t.Errorf("entry %s: declared %d bytes, read %d", hdr.Name, hdr.Size, len(content))
		}
		entries[hdr.Name] = content
	}
	return entries
}

func TestWriterRoundTrip(t *testing.T) {
	for _, codec := range []Codec{CodecXZ, CodecZstd} {
		t.Run(string(codec), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out"+codec.Extension())
			w, err := NewWriter(path, codec)
			if err != nil {
				t.Fatalf("NewWriter: %v", err)
			}

			files := map[string]string{
				"a.txt":     "root level content",
				"sub/b.txt": "nested content with more bytes",
			}
			for _, name := range []string{"a.txt", "sub/b.txt"} {
				content := files[name]
				if err := w.Add(name, int64(len(content)), strings.NewReader(content)); err != nil {
					t.Fatalf("Add(%s): %v", name, err)
				}
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			entries := readArchive(t, path, codec)
			if len(entries) != 2 {
				t.Fatalf("expected 2 entries, got %d", len(entries))
			}
			for name, want := range files {
				if string(entries[name]) != want {
					t.Errorf("entry %s: expected %q, got %q", name, want, entries[name])
				}
			}
		})
	}
}

func TestWriterTruncatesOverlongStream(t *testing.T) {
	// The declared size wins: a source offering more bytes than declared
	// must be capped by the caller via BoundedReader.
	path := filepath.Join(t.TempDir(), "out.tar.xz")
	w, err := NewWriter(path, CodecXZ)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	src := strings.NewReader("Hello, World!")
	if err := w.Add("hello.txt", 5, NewBoundedReader(src, 5)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readArchive(t, path, CodecXZ)
	if string(entries["hello.txt"]) != "Hello" {
		t.Errorf("expected %q, got %q", "Hello", entries["hello.txt"])
	}
}

func TestWriterPadsShortStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.tar.xz")
	w, err := NewWriter(path, CodecXZ)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	// First entry's stream dies after 3 of 10 declared bytes.
	if err := w.Add("broken.bin", 10, strings.NewReader("abc")); err == nil {
		t.Fatal("expected error for short stream")
	}

	// The archive must stay usable for subsequent entries.
	if err := w.Add("ok.txt", 4, strings.NewReader("good")); err != nil {
		t.Fatalf("Add after short entry: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readArchive(t, path, CodecXZ)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	want := append([]byte("abc"), make([]byte, 7)...)
	if !bytes.Equal(entries["broken.bin"], want) {
		t.Errorf("expected zero-padded entry, got %q", entries["broken.bin"])
	}
	if string(entries["ok.txt"]) != "good" {
		t.Errorf("expected %q, got %q", "good", entries["ok.txt"])
	}
}

func TestNewWriterUnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "out.tar.xz")
	if _, err := NewWriter(path, CodecXZ); err == nil {
		t.Fatal("expected error for unwritable path")
	}
}

func TestParseCodec(t *testing.T) {
	if _, err := ParseCodec("xz"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseCodec("zstd"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := ParseCodec("gzip"); err == nil {
		t.Error("expected error for unsupported codec")
	}
}
