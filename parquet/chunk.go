package parquet

import (
	"fmt"

	"jparque/compress"
	"jparque/record"
	"jparque/schema"
	"jparque/storage"
)

// ColumnChunk is the in-memory assembly unit for one column's data within a
// row group: a type/codec/count/size prefix followed by a single DataPage
// holding every record's value for that column, compressed as one unit.
type ColumnChunk struct {
	Type       schema.Type
	Codec      compress.Codec
	ValueCount int64
	TotalSize  int64

	Page *DataPage
	Body []byte // compressed page body
}

// buildColumnChunk assembles one column's values (in record order) into a
// ColumnChunk: encode every value with encodeFieldValue, compute
// statistics over the flattened single-value encodings, compress the
// resulting buffer with codec, and wrap it in a DataPage header.
func buildColumnChunk(field schema.Field, values []record.Value, codec compress.Codec) (*ColumnChunk, error) {
	var body []byte
	stats := Statistics{}
	distinct := make(map[string]struct{})

	for _, v := range values {
		body = encodeFieldValue(body, field, v)
		collectStats(&stats, distinct, field, v)
	}
	stats.DistinctCount = int64(len(distinct))

	compressor, err := compress.ForCodec(codec)
	if err != nil {
		return nil, err
	}
	compressed, err := compressor.Compress(body)
	if err != nil {
		return nil, fmt.Errorf("compress column %q: %w", field.Name, err)
	}

	page := &DataPage{
		ValueCount:              len(values),
		Encoding:                EncodingPlain,
		DefinitionLevelEncoding: EncodingPlain,
		RepetitionLevelEncoding: EncodingPlain,
		Statistics:              &stats,
		UncompressedSize:        len(body),
		CompressedSize:          len(compressed),
	}

	chunk := &ColumnChunk{
		Type:       field.Type,
		Codec:      codec,
		ValueCount: int64(len(values)),
		Page:       page,
		Body:       compressed,
	}
	chunk.TotalSize = int64(chunkPrefixSize+page.HeaderSize()) + int64(len(compressed))
	return chunk, nil
}

// collectStats folds v's contribution into stats and the running distinct
// set, recursing into list elements for repeated fields. Null values only
// affect NullCount.
func collectStats(stats *Statistics, distinct map[string]struct{}, field schema.Field, v record.Value) {
	if v.Kind == record.KindNull {
		stats.NullCount++
		return
	}
	if v.Kind == record.KindList {
		for _, item := range v.List {
			collectStats(stats, distinct, field, item)
		}
		return
	}

	encoded := encodeSingleValue(nil, field, v)
	distinct[string(encoded)] = struct{}{}
	if stats.Min == nil || unsignedCompare(encoded, stats.Min) < 0 {
		stats.Min = encoded
	}
	if stats.Max == nil || unsignedCompare(encoded, stats.Max) > 0 {
		stats.Max = encoded
	}
}

func unsignedCompare(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// chunkPrefixSize is the byte length of a ColumnChunk's fixed prefix: type
// tag (4), codec tag (4), value count (8), total size (8).
const chunkPrefixSize = 24

// Append writes c's prefix, page header, and compressed body to buf.
func (c *ColumnChunk) Append(buf []byte) []byte {
	buf = appendInt32(buf, int32(c.Type))
	buf = appendInt32(buf, int32(c.Codec))
	buf = appendInt64(buf, c.ValueCount)
	buf = appendInt64(buf, c.TotalSize)
	buf = c.Page.WriteHeader(buf)
	buf = append(buf, c.Body...)
	return buf
}

// readColumnChunk parses a ColumnChunk written by Append, decompresses its
// body, and returns the decoded values for field alongside the number of
// input bytes consumed.
func readColumnChunk(data []byte, field schema.Field) ([]record.Value, int, error) {
	if len(data) < chunkPrefixSize {
		return nil, 0, fmt.Errorf("%w: truncated column chunk prefix", storage.ErrCorruption)
	}
	pos := 0
	chunkType := schema.Type(readInt32(data, pos))
	pos += 4
	codec := compress.Codec(readInt32(data, pos))
	pos += 4
	valueCount := readInt64(data, pos)
	pos += 8
	_ = readInt64(data, pos) // totalSize, informational only
	pos += 8

	if chunkType != field.Type {
		return nil, 0, fmt.Errorf("%w: column %q type %s does not match schema type %s",
			storage.ErrCorruption, field.Name, chunkType, field.Type)
	}

	page, n, err := ReadDataPageHeader(data[pos:])
	if err != nil {
		return nil, 0, fmt.Errorf("column %q: %w", field.Name, err)
	}
	pos += n

	if pos+page.CompressedSize > len(data) {
		return nil, 0, fmt.Errorf("%w: column %q page body truncated", storage.ErrCorruption, field.Name)
	}
	compressed := data[pos : pos+page.CompressedSize]
	pos += page.CompressedSize

	compressor, err := compress.ForCodec(codec)
	if err != nil {
		return nil, 0, err
	}
	body, err := compressor.Decompress(compressed, page.UncompressedSize)
	if err != nil {
		return nil, 0, fmt.Errorf("decompress column %q: %w", field.Name, err)
	}

	values := make([]record.Value, 0, valueCount)
	bodyPos := 0
	for i := int64(0); i < valueCount; i++ {
		v, next, err := decodeFieldValue(body, bodyPos, field)
		if err != nil {
			return nil, 0, fmt.Errorf("column %q value %d: %w", field.Name, i, err)
		}
		bodyPos = next
		values = append(values, v)
	}

	return values, pos, nil
}
