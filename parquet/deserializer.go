package parquet

import (
	"bytes"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"jparque/record"
	"jparque/schema"
	"jparque/storage"
)

// Deserializer reads Parquet-shaped files produced by Serializer.
type Deserializer struct {
	logger *logrus.Logger
}

// NewDeserializer builds a Deserializer; a nil logger defaults to
// logrus.StandardLogger().
func NewDeserializer(logger *logrus.Logger) *Deserializer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Deserializer{logger: logger}
}

// Deserialize reads path, verifying header and footer magic, and returns
// every record alongside the schema recorded in the file's metadata.
func (d *Deserializer) Deserialize(path string) ([]record.Record, *schema.MessageType, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read parquet file %s: %w", path, err)
	}

	if len(data) < len(parquetMagic)+12 {
		return nil, nil, fmt.Errorf("%w: file too small to be a parquet-shaped file", storage.ErrCorruption)
	}
	if !bytes.Equal(data[:4], parquetMagic[:]) {
		return nil, nil, fmt.Errorf("%w: incorrect header magic in %s", storage.ErrCorruption, path)
	}
	if !bytes.Equal(data[len(data)-4:], parquetMagic[:]) {
		return nil, nil, fmt.Errorf("%w: incorrect footer magic in %s", storage.ErrCorruption, path)
	}

	metadataOffset := readInt64(data, len(data)-12)
	if metadataOffset < 0 || metadataOffset > int64(len(data)-12) {
		return nil, nil, fmt.Errorf("%w: metadata offset %d out of range", storage.ErrCorruption, metadataOffset)
	}

	schemaName := schemaNameFromPath(path)
	meta, err := decodeFileMetadata(data[metadataOffset:len(data)-12], schemaName)
	if err != nil {
		return nil, nil, fmt.Errorf("parquet metadata in %s: %w", path, err)
	}

	d.logger.WithFields(logrus.Fields{"path": path, "rowGroups": len(meta.RowGroups)}).Debug("jparque: reading parquet-shaped file")

	pos := 4
	if pos+4 > len(data) {
		return nil, nil, fmt.Errorf("%w: truncated row-group count", storage.ErrCorruption)
	}
	rowGroupCount := int(readInt32(data, pos))
	pos += 4
	if rowGroupCount != len(meta.RowGroups) {
		return nil, nil, fmt.Errorf("%w: body declares %d row groups, metadata declares %d", storage.ErrCorruption, rowGroupCount, len(meta.RowGroups))
	}

	var records []record.Record
	for i := 0; i < rowGroupCount; i++ {
		if pos+4 > len(data) {
			return nil, nil, fmt.Errorf("%w: truncated record count for row group %d", storage.ErrCorruption, i)
		}
		recordCount := int(readInt32(data, pos))
		pos += 4

		fieldsList, n, err := readRowGroup(data[pos:], meta.Schema, recordCount)
		if err != nil {
			return nil, nil, fmt.Errorf("row group %d: %w", i, err)
		}
		pos += n

		for _, f := range fieldsList {
			records = append(records, record.Record{Value: f})
		}
	}

	return records, meta.Schema, nil
}

func schemaNameFromPath(path string) string {
	base := path
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			base = path[i+1:]
			break
		}
	}
	return base
}
