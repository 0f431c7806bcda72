// Package compress implements the per-column-chunk compression codecs used
// by the columnar file format: uncompressed passthrough, Snappy, Gzip, and
// Zstd. Every codec is byte-buffer-in, byte-buffer-out and round-trips
// exactly; decompression is handed the expected uncompressed length and
// rejects a mismatch.
package compress

import (
	"fmt"

	"jparque/storage"
)

// Codec is a stable wire identifier for a compression algorithm. Values
// match the Parquet spec family; LZO, Brotli, and LZ4 are recognized tags
// with no implementation.
type Codec int32

const (
	Uncompressed Codec = 0
	Snappy       Codec = 1
	Gzip         Codec = 2
	LZO          Codec = 3
	Brotli       Codec = 4
	LZ4          Codec = 5
	Zstd         Codec = 6
)

func (c Codec) String() string {
	switch c {
	case Uncompressed:
		return "uncompressed"
	case Snappy:
		return "snappy"
	case Gzip:
		return "gzip"
	case LZO:
		return "lzo"
	case Brotli:
		return "brotli"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("codec(%d)", int32(c))
	}
}

// Compressor compresses and decompresses byte buffers for one codec.
// Decompress is handed the uncompressed length the caller expects and must
// fail if the result doesn't match it.
type Compressor interface {
	Compress(uncompressed []byte) ([]byte, error)
	Decompress(compressed []byte, uncompressedLen int) ([]byte, error)
}

// ForCodec returns the Compressor for c, or a wrapped storage.ErrUnsupported
// for a recognized-but-unimplemented or unknown tag.
func ForCodec(c Codec) (Compressor, error) {
	switch c {
	case Uncompressed:
		return uncompressedCompressor{}, nil
	case Snappy:
		return snappyCompressor{}, nil
	case Gzip:
		return gzipCompressor{}, nil
	case Zstd:
		return newZstdCompressor(), nil
	case LZO, Brotli, LZ4:
		return nil, fmt.Errorf("%w: compression codec %s not implemented", storage.ErrUnsupported, c)
	default:
		return nil, fmt.Errorf("%w: unknown compression codec %d", storage.ErrUnsupported, int32(c))
	}
}
