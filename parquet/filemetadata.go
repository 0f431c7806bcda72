package parquet

import (
	"fmt"

	"jparque/schema"
	"jparque/storage"
)

// RowGroupIndexEntry describes one row group in the file metadata's
// row-group index: its row count, on-disk byte size, and start offset.
type RowGroupIndexEntry struct {
	RowCount      int64
	TotalByteSize int64
	StartOffset   int64
}

// FileMetadata is the trailing block of a Parquet-shaped file: format
// version, the schema that produced it, a free-form creator string, and the
// row-group index.
type FileMetadata struct {
	Version   int32
	Schema    *schema.MessageType
	Creator   string
	RowGroups []RowGroupIndexEntry
}

// Append encodes m: version; field count then per field type, repetition,
// original-type tag (-1 if absent), name length, name bytes; creator string
// (length-prefixed); row-group count then per row group row count, total
// byte size, start offset.
func (m *FileMetadata) Append(buf []byte) []byte {
	buf = appendInt32(buf, m.Version)

	buf = appendInt32(buf, int32(len(m.Schema.Fields)))
	for _, f := range m.Schema.Fields {
		buf = appendInt32(buf, int32(f.Type))
		buf = appendInt32(buf, int32(f.Repetition))
		if f.OriginalType != nil {
			buf = appendInt32(buf, int32(*f.OriginalType))
		} else {
			buf = appendInt32(buf, -1)
		}
		buf = appendLenPrefixed(buf, []byte(f.Name))
	}

	buf = appendLenPrefixed(buf, []byte(m.Creator))

	buf = appendInt64(buf, int64(len(m.RowGroups)))
	for _, rg := range m.RowGroups {
		buf = appendInt64(buf, rg.RowCount)
		buf = appendInt64(buf, rg.TotalByteSize)
		buf = appendInt64(buf, rg.StartOffset)
	}

	return buf
}

// decodeFileMetadata is the inverse of Append. schemaName is used as the
// resulting MessageType's name; the wire format does not carry one
// separately from the creator string.
func decodeFileMetadata(data []byte, schemaName string) (*FileMetadata, error) {
	pos := 0
	if pos+4 > len(data) {
		return nil, fmt.Errorf("%w: truncated metadata version", storage.ErrCorruption)
	}
	m := &FileMetadata{Version: readInt32(data, pos)}
	pos += 4

	if pos+4 > len(data) {
		return nil, fmt.Errorf("%w: truncated metadata field count", storage.ErrCorruption)
	}
	fieldCount := int(readInt32(data, pos))
	pos += 4
	if fieldCount < 0 {
		return nil, fmt.Errorf("%w: negative metadata field count", storage.ErrCorruption)
	}

	fields := make([]schema.Field, 0, fieldCount)
	for i := 0; i < fieldCount; i++ {
		if pos+12 > len(data) {
			return nil, fmt.Errorf("%w: truncated metadata field %d", storage.ErrCorruption, i)
		}
		typ := schema.Type(readInt32(data, pos))
		pos += 4
		rep := schema.Repetition(readInt32(data, pos))
		pos += 4
		otValue := readInt32(data, pos)
		pos += 4

		name, n, err := readLenPrefixed(data, pos)
		if err != nil {
			return nil, fmt.Errorf("metadata field %d name: %w", i, err)
		}
		pos = n

		field := schema.NewField(i, string(name), typ, rep)
		if otValue >= 0 {
			field = field.WithOriginalType(schema.OriginalType(otValue))
		}
		fields = append(fields, field)
	}
	m.Schema = schema.NewMessageType(schemaName, fields...)

	creator, n, err := readLenPrefixed(data, pos)
	if err != nil {
		return nil, fmt.Errorf("metadata creator: %w", err)
	}
	pos = n
	m.Creator = string(creator)

	if pos+8 > len(data) {
		return nil, fmt.Errorf("%w: truncated row-group index count", storage.ErrCorruption)
	}
	rgCount := readInt64(data, pos)
	pos += 8
	if rgCount < 0 {
		return nil, fmt.Errorf("%w: negative row-group index count", storage.ErrCorruption)
	}

	m.RowGroups = make([]RowGroupIndexEntry, 0, rgCount)
	for i := int64(0); i < rgCount; i++ {
		if pos+24 > len(data) {
			return nil, fmt.Errorf("%w: truncated row-group index entry %d", storage.ErrCorruption, i)
		}
		entry := RowGroupIndexEntry{
			RowCount:      readInt64(data, pos),
			TotalByteSize: readInt64(data, pos+8),
			StartOffset:   readInt64(data, pos+16),
		}
		pos += 24
		m.RowGroups = append(m.RowGroups, entry)
	}

	return m, nil
}
