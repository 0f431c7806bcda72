package compress

import (
	"fmt"

	"github.com/golang/snappy"
)

type snappyCompressor struct{}

func (snappyCompressor) Compress(uncompressed []byte) ([]byte, error) {
	return snappy.Encode(nil, uncompressed), nil
}

func (snappyCompressor) Decompress(compressed []byte, uncompressedLen int) ([]byte, error) {
	out, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}
	if len(out) != uncompressedLen {
		return nil, fmt.Errorf("snappy decoded length mismatch: got %d bytes, expected %d", len(out), uncompressedLen)
	}
	return out, nil
}
