package parquet

import (
	"fmt"

	"jparque/compress"
	"jparque/record"
	"jparque/schema"
	"jparque/storage"
)

// RowGroup is an ordered list of column chunks — one per schema field, in
// field order — together with the number of records it holds.
type RowGroup struct {
	RowCount int64
	Columns  []*ColumnChunk
}

// buildRowGroup assembles one column chunk per field of message from
// records, in field order.
func buildRowGroup(message *schema.MessageType, records []record.Record, codec compress.Codec) (*RowGroup, error) {
	rg := &RowGroup{RowCount: int64(len(records)), Columns: make([]*ColumnChunk, len(message.Fields))}

	for i, field := range message.Fields {
		values := make([]record.Value, len(records))
		for j, rec := range records {
			values[j] = rec.Value[field.Name]
		}
		chunk, err := buildColumnChunk(field, values, codec)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", field.Name, err)
		}
		rg.Columns[i] = chunk
	}
	return rg, nil
}

// TotalByteSize sums the on-disk size of every column chunk in the group.
func (rg *RowGroup) TotalByteSize() int64 {
	var total int64
	for _, c := range rg.Columns {
		total += c.TotalSize
	}
	return total
}

// Append writes every column chunk in field order.
func (rg *RowGroup) Append(buf []byte) []byte {
	for _, c := range rg.Columns {
		buf = c.Append(buf)
	}
	return buf
}

// readRowGroup parses one column chunk per field (in field order), each
// holding rowCount values, starting at data[0], merging them into rowCount
// records keyed positionally. It returns the records (field maps only, with
// no key) and the number of input bytes consumed.
func readRowGroup(data []byte, message *schema.MessageType, rowCount int) ([]record.Fields, int, error) {
	records := make([]record.Fields, rowCount)
	for i := range records {
		records[i] = make(record.Fields, len(message.Fields))
	}

	pos := 0
	for _, field := range message.Fields {
		values, n, err := readColumnChunk(data[pos:], field)
		if err != nil {
			return nil, 0, err
		}
		pos += n
		if len(values) != rowCount {
			return nil, 0, fmt.Errorf("%w: column %q decoded %d values, expected %d row group record count", storage.ErrCorruption, field.Name, len(values), rowCount)
		}
		for i, v := range values {
			records[i][field.Name] = v
		}
	}

	return records, pos, nil
}
