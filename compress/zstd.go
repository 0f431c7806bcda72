package compress

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdCompressor wraps klauspost/compress/zstd encoders/decoders at level 3,
// matching the compression level the spec calls for. Native resources held
// by the encoder/decoder are released after each call; this trades a little
// throughput for not having to thread a Close() through the Compressor
// interface.
type zstdCompressor struct {
	level zstd.EncoderLevel
}

func newZstdCompressor() *zstdCompressor {
	return &zstdCompressor{level: zstd.SpeedDefault}
}

func (z *zstdCompressor) Compress(uncompressed []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(z.level))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(uncompressed, nil), nil
}

func (z *zstdCompressor) Decompress(compressed []byte, uncompressedLen int) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(compressed, make([]byte, 0, uncompressedLen))
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	if len(out) != uncompressedLen {
		return nil, fmt.Errorf("zstd decoded length mismatch: got %d bytes, expected %d", len(out), uncompressedLen)
	}
	return out, nil
}
