package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Codec selects the compression applied to the tar stream.
type Codec string

const (
	CodecXZ   Codec = "xz"
	CodecZstd Codec = "zstd"
)

// ParseCodec validates a compression name from config or flags.
func ParseCodec(s string) (Codec, error) {
	switch Codec(s) {
	case CodecXZ, CodecZstd:
		return Codec(s), nil
	default:
		return "", fmt.Errorf("unsupported compression %q: use xz or zstd", s)
	}
}

// Extension returns the archive filename suffix for the codec.
func (c Codec) Extension() string {
	if c == CodecZstd {
		return ".tar.zst"
	}
	return ".tar.xz"
}

// ContentType returns the MIME type used when uploading an archive.
func (c Codec) ContentType() string {
	if c == CodecZstd {
		return "application/zstd"
	}
	return "application/x-xz"
}

// xzDictCap trades memory for ratio; archives are written once and
// read rarely, so the encoder gets a large dictionary.
const xzDictCap = 64 << 20

// Writer produces a sequential compressed tar archive. Entries must be
// added one at a time and fully written before the next begins.
type Writer struct {
	path string
	file *os.File
	comp io.WriteCloser
	tw   *tar.Writer
}

// NewWriter creates the archive file at path with the given codec.
func NewWriter(path string, codec Codec) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating archive file: %w", err)
	}

	var comp io.WriteCloser
	switch codec {
	case CodecZstd:
		comp, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	default:
		comp, err = xz.WriterConfig{DictCap: xzDictCap}.NewWriter(f)
	}
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("creating %s writer: %w", codec, err)
	}

	return &Writer{
		path: path,
		file: f,
		comp: comp,
		tw:   tar.NewWriter(comp),
	}, nil
}

// Path returns the location of the archive file.
func (w *Writer) Path() string {
	return w.path
}

// Add appends one entry of exactly size bytes read from r. If r ends
// short, the entry is zero-padded to the declared size so the tar
// stream stays consistent for subsequent entries, and an error naming
// the truncation is returned.
func (w *Writer) Add(name string, size int64, r io.Reader) error {
	hdr := &tar.Header{
		Name:     name,
		Size:     size,
		Mode:     0o644,
		ModTime:  time.Now(),
		Typeflag: tar.TypeReg,
	}
	if err := w.tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing header for %s: %w", name, err)
	}

	n, err := io.Copy(w.tw, r)
	if n < size {
		if _, padErr := io.CopyN(w.tw, zeroReader{}, size-n); padErr != nil {
			return fmt.Errorf("padding truncated entry %s: %w", name, padErr)
		}
	}
	if err != nil {
		return fmt.Errorf("copying content for %s: %w", name, err)
	}
	if n < size {
		return fmt.Errorf("short content for %s: got %d of %d bytes", name, n, size)
	}
	return nil
}

// Close finalizes the archive, flushing the tar trailer and all
// pending compressed output. The writer is unusable afterwards.
func (w *Writer) Close() error {
	if err := w.tw.Close(); err != nil {
		return fmt.Errorf("closing tar writer: %w", err)
	}
	if err := w.comp.Close(); err != nil {
		return fmt.Errorf("closing compressor: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("closing archive file: %w", err)
	}
	return nil
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
