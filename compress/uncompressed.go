package compress

import "fmt"

type uncompressedCompressor struct{}

func (uncompressedCompressor) Compress(uncompressed []byte) ([]byte, error) {
	out := make([]byte, len(uncompressed))
	copy(out, uncompressed)
	return out, nil
}

func (uncompressedCompressor) Decompress(compressed []byte, uncompressedLen int) ([]byte, error) {
	if len(compressed) != uncompressedLen {
		return nil, fmt.Errorf("uncompressed length mismatch: got %d bytes, expected %d", len(compressed), uncompressedLen)
	}
	out := make([]byte, len(compressed))
	copy(out, compressed)
	return out, nil
}
