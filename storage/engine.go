// Package storage defines the common contract implemented by the B+Tree
// engine and the columnar store facade.
package storage

import "jparque/record"

// Engine is the capability set any storage backend in jparque exposes:
// point write/read, batch write, ordered range scan with projection, and
// delete. BTreeEngine and ColumnStore both implement it.
type Engine interface {
	Write(key []byte, value record.Fields) error
	WriteBatch(records []record.Record) error
	Read(key []byte) (record.Fields, bool, error)
	Scan(start, end []byte, columns []string) ([]record.Record, error)
	Delete(key []byte) error
	Close() error
}
