package parquet

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"jparque/compress"
	"jparque/record"
	"jparque/schema"
)

// parquetMagic opens and closes every file this codec produces.
var parquetMagic = [4]byte{'P', 'A', 'R', '1'}

// Options configures a Serializer. NewDeserializer takes only a logger.
type Options struct {
	// Codec is the compression codec applied to every column chunk.
	// Zero value is compress.Uncompressed.
	Codec compress.Codec

	// Creator is a free-form string recorded in the file metadata.
	Creator string

	Logger *logrus.Logger
}

func (o Options) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

// Serializer writes records conforming to a schema into a Parquet-shaped
// file. All records are currently written as a single row group, matching
// the reference write path's scope.
type Serializer struct {
	schema *schema.MessageType
	opts   Options
}

// NewSerializer builds a Serializer bound to message, writing with opts
// (zero value: uncompressed, no creator string).
func NewSerializer(message *schema.MessageType, opts Options) *Serializer {
	return &Serializer{schema: message, opts: opts}
}

// Serialize validates every record against the schema, then writes path as
// a single-row-group Parquet-shaped file: magic, row-group count, the row
// group's column chunks, file metadata, and a trailer carrying the
// metadata's start offset.
func (s *Serializer) Serialize(records []record.Record, path string) error {
	for _, rec := range records {
		if err := s.validateRecord(rec.Value); err != nil {
			return err
		}
	}

	var buf []byte
	buf = append(buf, parquetMagic[:]...)
	buf = appendInt32(buf, 1) // row group count

	rowGroupStart := len(buf)
	buf = appendInt32(buf, int32(len(records)))

	rg, err := buildRowGroup(s.schema, records, s.opts.Codec)
	if err != nil {
		return err
	}
	buf = rg.Append(buf)
	rowGroupSize := int64(len(buf) - rowGroupStart)

	metadataOffset := int64(len(buf))
	meta := &FileMetadata{
		Version: 1,
		Schema:  s.schema,
		Creator: s.opts.Creator,
		RowGroups: []RowGroupIndexEntry{
			{RowCount: rg.RowCount, TotalByteSize: rowGroupSize, StartOffset: int64(rowGroupStart)},
		},
	}
	buf = meta.Append(buf)

	buf = appendInt64(buf, metadataOffset)
	buf = append(buf, parquetMagic[:]...)

	s.opts.logger().WithFields(logrus.Fields{
		"path":    path,
		"records": len(records),
		"codec":   s.opts.Codec,
	}).Debug("jparque: writing parquet-shaped file")

	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("write parquet file %s: %w", path, err)
	}
	return nil
}

func (s *Serializer) validateRecord(fields record.Fields) error {
	for _, field := range s.schema.Fields {
		if err := validateFieldValue(field, fields[field.Name]); err != nil {
			return err
		}
	}
	return nil
}
