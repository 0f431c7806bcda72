package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

type gzipCompressor struct{}

func (gzipCompressor) Compress(uncompressed []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(uncompressed); err != nil {
		w.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return buf.Bytes(), nil
}

func (gzipCompressor) Decompress(compressed []byte, uncompressedLen int) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("gzip reader: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gzip read: %w", err)
	}
	if len(out) != uncompressedLen {
		return nil, fmt.Errorf("gzip decoded length mismatch: got %d bytes, expected %d", len(out), uncompressedLen)
	}
	return out, nil
}
