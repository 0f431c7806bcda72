// Package columnstore implements a keyed storage.Engine facade over the
// Parquet-shaped columnar codec in package parquet. Every mutation rewrites
// the whole backing file; there is no incremental update path.
package columnstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"

	"jparque/compress"
	"jparque/parquet"
	"jparque/record"
	"jparque/schema"
	"jparque/storage"
)

// keyField is the internal column that carries each record's raw key bytes.
// It is appended to the caller's schema before any file I/O and stripped
// from every value this package hands back to a caller.
const keyField = "_key"

// Options configures Open. The zero value selects uncompressed column
// chunks and logrus.StandardLogger().
type Options struct {
	Codec   compress.Codec
	Creator string
	Logger  *logrus.Logger
}

func (o Options) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

// ColumnStore is a keyed storage.Engine backed by a single Parquet-shaped
// file. It keeps a read-through in-memory cache of every record (augmented
// with keyField) plus a tombstone set of deleted keys, and rewrites the
// entire file on every mutation.
type ColumnStore struct {
	path       string
	schema     *schema.MessageType // caller-visible schema, without keyField
	fileSchema *schema.MessageType // schema.Fields + keyField, used for I/O

	opts   Options
	logger *logrus.Logger

	cache      []record.Fields
	tombstones *tombstoneSet
	dirty      bool
	closed     bool
}

var _ storage.Engine = (*ColumnStore)(nil)

// Open creates dataDirectory if needed and opens (or creates) the Parquet
// file dataDirectory/fileName.parquet under the given schema. If the file
// already exists, its records are loaded into the cache immediately.
func Open(dataDirectory, fileName string, message *schema.MessageType, opts Options) (*ColumnStore, error) {
	if err := os.MkdirAll(dataDirectory, 0755); err != nil {
		return nil, fmt.Errorf("create data directory %s: %w", dataDirectory, err)
	}

	cs := &ColumnStore{
		path:       filepath.Join(dataDirectory, fileName+".parquet"),
		schema:     message,
		fileSchema: withKeyField(message),
		opts:       opts,
		logger:     opts.logger(),
		tombstones: newTombstoneSet(),
	}

	if _, err := os.Stat(cs.path); err == nil {
		if err := cs.load(); err != nil {
			cs.logger.WithError(err).WithField("path", cs.path).Error("columnstore: failed to load existing file")
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("stat %s: %w", cs.path, err)
	}

	return cs, nil
}

// Schema returns the caller-visible schema (without the internal key
// field).
func (cs *ColumnStore) Schema() *schema.MessageType { return cs.schema }

func withKeyField(message *schema.MessageType) *schema.MessageType {
	fields := make([]schema.Field, 0, len(message.Fields)+1)
	fields = append(fields, message.Fields...)
	fields = append(fields, schema.NewField(len(message.Fields), keyField, schema.TypeBinary, schema.Required))
	return schema.NewMessageType(message.Name, fields...)
}

func (cs *ColumnStore) load() error {
	deser := parquet.NewDeserializer(cs.logger)
	records, _, err := deser.Deserialize(cs.path)
	if err != nil {
		return err
	}
	cs.cache = cs.cache[:0]
	for _, rec := range records {
		cs.cache = append(cs.cache, rec.Value)
	}
	cs.logger.WithFields(logrus.Fields{"path": cs.path, "records": len(cs.cache)}).Debug("columnstore: loaded existing records")
	return nil
}

func recordKey(fields record.Fields) ([]byte, bool) {
	v, ok := fields[keyField]
	if !ok || v.Kind != record.KindString {
		return nil, false
	}
	return []byte(v.Str), true
}

func stripKey(fields record.Fields) record.Fields {
	out := fields.Clone()
	delete(out, keyField)
	return out
}

func (cs *ColumnStore) removeFromCache(key []byte) bool {
	removed := false
	kept := cs.cache[:0]
	for _, fields := range cs.cache {
		if k, ok := recordKey(fields); ok && bytesEqual(k, key) {
			removed = true
			continue
		}
		kept = append(kept, fields)
	}
	cs.cache = kept
	return removed
}

// Write appends value under key, replacing any existing record with the
// same key, clears a matching tombstone, and rewrites the file.
func (cs *ColumnStore) Write(key []byte, value record.Fields) error {
	if len(key) == 0 {
		return fmt.Errorf("%w: empty key", storage.ErrInvalidArgument)
	}

	cs.tombstones.Remove(key)
	cs.removeFromCache(key)

	withKey := value.Clone()
	withKey[keyField] = record.StringValue(string(key))
	cs.cache = append(cs.cache, withKey)
	cs.dirty = true

	return cs.flush()
}

// WriteBatch applies every record's write in order, performing exactly one
// file rewrite.
func (cs *ColumnStore) WriteBatch(records []record.Record) error {
	if len(records) == 0 {
		return nil
	}

	for _, rec := range records {
		if len(rec.Key) == 0 {
			return fmt.Errorf("%w: empty key in batch", storage.ErrInvalidArgument)
		}
		cs.tombstones.Remove(rec.Key)
		cs.removeFromCache(rec.Key)

		withKey := rec.Value.Clone()
		withKey[keyField] = record.StringValue(string(rec.Key))
		cs.cache = append(cs.cache, withKey)
	}
	cs.dirty = true

	return cs.flush()
}

// Read returns the record stored under key, with the internal key field
// stripped, or false if key is absent or tombstoned.
func (cs *ColumnStore) Read(key []byte) (record.Fields, bool, error) {
	if cs.tombstones.Contains(key) {
		return nil, false, nil
	}

	if len(cs.cache) == 0 {
		if err := cs.reloadIfPresent(); err != nil {
			return nil, false, err
		}
	}

	for _, fields := range cs.cache {
		if k, ok := recordKey(fields); ok && bytesEqual(k, key) {
			return stripKey(fields), true, nil
		}
	}
	return nil, false, nil
}

func (cs *ColumnStore) reloadIfPresent() error {
	if _, err := os.Stat(cs.path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", cs.path, err)
	}
	return cs.load()
}

// Scan returns every non-tombstoned record whose key falls in [start, end)
// (end == nil means unbounded), optionally projected to columns, sorted by
// unsigned byte-lexicographic key order.
func (cs *ColumnStore) Scan(start, end []byte, columns []string) ([]record.Record, error) {
	if len(cs.cache) == 0 {
		if err := cs.reloadIfPresent(); err != nil {
			return nil, err
		}
	}

	var results []record.Record
	for _, fields := range cs.cache {
		key, ok := recordKey(fields)
		if !ok || cs.tombstones.Contains(key) {
			continue
		}
		if unsignedCompare(key, start) < 0 {
			continue
		}
		if end != nil && unsignedCompare(key, end) >= 0 {
			continue
		}

		value := stripKey(fields)
		if len(columns) > 0 {
			value = value.Project(columns)
		}
		results = append(results, record.Record{Key: append([]byte(nil), key...), Value: value})
	}

	sort.Slice(results, func(i, j int) bool {
		return unsignedCompare(results[i].Key, results[j].Key) < 0
	})
	return results, nil
}

// Delete tombstones key and removes it from the cache, rewriting the file
// only if a matching record was actually present.
func (cs *ColumnStore) Delete(key []byte) error {
	cs.tombstones.Add(key)
	if !cs.removeFromCache(key) {
		return nil
	}
	cs.dirty = true
	return cs.flush()
}

// Close flushes any pending mutation to disk and marks the store closed.
// Calling Close more than once is a no-op.
func (cs *ColumnStore) Close() error {
	if cs.closed {
		return nil
	}
	if cs.dirty {
		if err := cs.flush(); err != nil {
			return err
		}
	}
	cs.closed = true
	return nil
}

func (cs *ColumnStore) flush() error {
	ser := parquet.NewSerializer(cs.fileSchema, parquet.Options{
		Codec:   cs.opts.Codec,
		Creator: cs.opts.Creator,
		Logger:  cs.logger,
	})

	records := make([]record.Record, len(cs.cache))
	for i, fields := range cs.cache {
		records[i] = record.Record{Value: fields}
	}

	if err := ser.Serialize(records, cs.path); err != nil {
		return err
	}
	cs.dirty = false
	cs.logger.WithFields(logrus.Fields{"path": cs.path, "records": len(records)}).Debug("columnstore: flushed to disk")
	return nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// unsignedCompare orders byte slices by unsigned byte value, matching the
// B+Tree's own key ordering so scans agree across both engines.
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
