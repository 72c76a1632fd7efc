package archive

import "io"

// BoundedReader wraps a stream and caps the total number of bytes it
// will deliver. Once the budget is spent it reports io.EOF without
// touching the underlying source again, so a consumer that trusts a
// declared length (the tar writer) sees a stream of exactly that
// length even when the network body offers more.
type BoundedReader struct {
	src       io.Reader
	remaining int64
}

// NewBoundedReader returns a reader that yields at most limit bytes
// from src. A negative limit is treated as zero.
func NewBoundedReader(src io.Reader, limit int64) *BoundedReader {
	if limit < 0 {
		limit = 0
	}
	return &BoundedReader{src: src, remaining: limit}
}

// Remaining reports how many bytes of the budget are left.
func (b *BoundedReader) Remaining() int64 {
	return b.remaining
}

func (b *BoundedReader) Read(p []byte) (int, error) {
	if b.remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > b.remaining {
		p = p[:b.remaining]
	}
	n, err := b.src.Read(p)
	b.remaining -= int64(n)
	return n, err
}
