// Package table sketches a row-oriented table facade over a named B+Tree
// file. It is out of scope for this build: Insert and Get delegate directly
// to the underlying engine with no indexing, typing, or query layer of
// their own.
package table

import (
	"jparque/btree"
	"jparque/record"
)

// Table binds a name to a *btree.BTreeEngine.
type Table struct {
	Name   string
	Engine *btree.BTreeEngine
}

// Open opens the B+Tree file at path and binds it as a named table.
func Open(name, path string, opts btree.Options) (*Table, error) {
	e, err := btree.Open(path, opts)
	if err != nil {
		return nil, err
	}
	return &Table{Name: name, Engine: e}, nil
}

// Insert delegates to the underlying engine's Write.
func (t *Table) Insert(key []byte, row record.Fields) error {
	return t.Engine.Write(key, row)
}

// Get delegates to the underlying engine's Read.
func (t *Table) Get(key []byte) (record.Fields, bool, error) {
	return t.Engine.Read(key)
}

// Close delegates to the underlying engine's Close.
func (t *Table) Close() error {
	return t.Engine.Close()
}
