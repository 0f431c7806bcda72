// Package parquet implements the Parquet-shaped columnar file codec: a
// row-group / column-chunk / data-page structure with per-chunk compression,
// statistics, and a footer carrying the schema and row-group index.
package parquet

import (
	"encoding/binary"
	"fmt"

	"jparque/storage"
)

// PageType tags the kind of page a header describes. Only DataPage is ever
// produced by this codec; the others are recognized wire values reserved by
// the format.
type PageType byte

const (
	PageTypeData       PageType = 0
	PageTypeIndex      PageType = 1
	PageTypeDictionary PageType = 2
	PageTypeDataV2     PageType = 3
)

// Encoding tags how a page's values are laid out. This codec always uses
// Plain; the other tags are recognized wire values for forward
// compatibility with a real dictionary/RLE implementation.
type Encoding int32

const (
	EncodingPlain                Encoding = 0
	EncodingDictionary           Encoding = 2
	EncodingRLE                  Encoding = 3
	EncodingBitPacked            Encoding = 4
	EncodingDeltaBinaryPacked    Encoding = 5
	EncodingDeltaLengthByteArray Encoding = 6
	EncodingDeltaByteArray       Encoding = 7
	EncodingRLEDictionary        Encoding = 8
)

// Statistics summarizes a column's values: the smallest and largest encoded
// value (byte-lexicographic, over the same single-value wire encoding the
// page body uses), a null count, and a count of distinct encoded values.
// Min/Max are nil when the column has no non-null values to compare.
type Statistics struct {
	Min           []byte
	Max           []byte
	NullCount     int64
	DistinctCount int64
}

// Size reports the encoded byte length of s, per the wire layout documented
// on Append.
func (s Statistics) Size() int {
	// two length prefixes + min/max bytes + null count + distinct count
	return 4 + len(s.Min) + 4 + len(s.Max) + 16
}

// Append encodes s as min-value `[u32 len][bytes]`, max-value
// `[u32 len][bytes]`, null count (8), distinct count (8). A nil Min or Max
// is encoded as a zero-length entry.
func (s Statistics) Append(buf []byte) []byte {
	buf = appendLenPrefixed(buf, s.Min)
	buf = appendLenPrefixed(buf, s.Max)
	buf = appendInt64(buf, s.NullCount)
	buf = appendInt64(buf, s.DistinctCount)
	return buf
}

// DecodeStatistics parses bytes produced by Append, returning the number of
// bytes consumed.
func DecodeStatistics(data []byte) (Statistics, int, error) {
	var s Statistics
	pos := 0

	minVal, n, err := readLenPrefixed(data, pos)
	if err != nil {
		return s, 0, fmt.Errorf("statistics min value: %w", err)
	}
	s.Min, pos = minVal, n

	maxVal, n, err := readLenPrefixed(data, pos)
	if err != nil {
		return s, 0, fmt.Errorf("statistics max value: %w", err)
	}
	s.Max, pos = maxVal, n

	if pos+16 > len(data) {
		return s, 0, fmt.Errorf("%w: truncated statistics block", storage.ErrCorruption)
	}
	s.NullCount = int64(binary.BigEndian.Uint64(data[pos:]))
	pos += 8
	s.DistinctCount = int64(binary.BigEndian.Uint64(data[pos:]))
	pos += 8

	return s, pos, nil
}

// DataPage is the in-memory assembly unit for one column's values within one
// row group: a header (type, sizes, value count, encodings, statistics)
// followed by the page body, compressed independently per chunk.
type DataPage struct {
	ValueCount              int
	Encoding                Encoding
	DefinitionLevelEncoding Encoding
	RepetitionLevelEncoding Encoding
	Statistics              *Statistics

	UncompressedSize int
	CompressedSize   int
}

// HeaderSize reports the byte length WriteHeader will produce.
func (p *DataPage) HeaderSize() int {
	size := 25 // type(1) + uncompressed(4) + compressed(4) + valueCount(4) + 3*encoding(4)
	if p.Statistics != nil {
		size += p.Statistics.Size()
	}
	return size
}

// WriteHeader appends the header fields, in order: page type tag,
// uncompressed size, compressed size, value count, value encoding,
// definition-level encoding, repetition-level encoding, and the statistics
// block if present.
func (p *DataPage) WriteHeader(buf []byte) []byte {
	buf = append(buf, byte(PageTypeData))
	buf = appendInt32(buf, int32(p.UncompressedSize))
	buf = appendInt32(buf, int32(p.CompressedSize))
	buf = appendInt32(buf, int32(p.ValueCount))
	buf = appendInt32(buf, int32(p.Encoding))
	buf = appendInt32(buf, int32(p.DefinitionLevelEncoding))
	buf = appendInt32(buf, int32(p.RepetitionLevelEncoding))
	if p.Statistics != nil {
		buf = p.Statistics.Append(buf)
	}
	return buf
}

// ReadDataPageHeader parses a header written by WriteHeader, returning the
// page and the number of bytes consumed. The trailing statistics block is
// always parsed: this codec always writes one, so a missing block is
// reported as corruption (truncation).
func ReadDataPageHeader(data []byte) (*DataPage, int, error) {
	if len(data) < 25 {
		return nil, 0, fmt.Errorf("%w: truncated data page header", storage.ErrCorruption)
	}
	if PageType(data[0]) != PageTypeData {
		return nil, 0, fmt.Errorf("%w: unexpected page type tag %d", storage.ErrCorruption, data[0])
	}
	pos := 1

	p := &DataPage{}
	p.UncompressedSize = int(readInt32(data, pos))
	pos += 4
	p.CompressedSize = int(readInt32(data, pos))
	pos += 4
	p.ValueCount = int(readInt32(data, pos))
	pos += 4
	p.Encoding = Encoding(readInt32(data, pos))
	pos += 4
	p.DefinitionLevelEncoding = Encoding(readInt32(data, pos))
	pos += 4
	p.RepetitionLevelEncoding = Encoding(readInt32(data, pos))
	pos += 4

	stats, n, err := DecodeStatistics(data[pos:])
	if err != nil {
		return nil, 0, fmt.Errorf("data page statistics: %w", err)
	}
	p.Statistics = &stats
	pos += n

	return p, pos, nil
}

func appendLenPrefixed(buf, b []byte) []byte {
	buf = appendInt32(buf, int32(len(b)))
	return append(buf, b...)
}

func readLenPrefixed(data []byte, pos int) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, 0, fmt.Errorf("%w: truncated length prefix", storage.ErrCorruption)
	}
	n := int(readInt32(data, pos))
	pos += 4
	if n < 0 || pos+n > len(data) {
		return nil, 0, fmt.Errorf("%w: length-prefixed field reports invalid length %d", storage.ErrCorruption, n)
	}
	if n == 0 {
		return nil, pos, nil
	}
	out := make([]byte, n)
	copy(out, data[pos:pos+n])
	return out, pos + n, nil
}

func appendInt32(buf []byte, n int32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], uint32(n))
	return append(buf, tmp[:]...)
}

func appendInt64(buf []byte, n int64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], uint64(n))
	return append(buf, tmp[:]...)
}

func readInt32(data []byte, pos int) int32 {
	return int32(binary.BigEndian.Uint32(data[pos:]))
}

func readInt64(data []byte, pos int) int64 {
	return int64(binary.BigEndian.Uint64(data[pos:]))
}
