// Package lsm is a documented stub. An LSM-tree engine is out of scope for
// this build; Engine exists only so callers can satisfy storage.Engine
// against a placeholder without a real log-structured merge implementation
// behind it.
package lsm

import (
	"fmt"

	"jparque/record"
	"jparque/storage"
)

// Engine implements storage.Engine with no real behavior. Every method
// except Close returns a wrapped storage.ErrUnsupported.
type Engine struct{}

var _ storage.Engine = (*Engine)(nil)

// New returns a stub Engine. There is nothing to open or allocate.
func New() *Engine { return &Engine{} }

func (e *Engine) Write(key []byte, value record.Fields) error {
	return fmt.Errorf("%w: lsm engine is a stub", storage.ErrUnsupported)
}

func (e *Engine) WriteBatch(records []record.Record) error {
	return fmt.Errorf("%w: lsm engine is a stub", storage.ErrUnsupported)
}

func (e *Engine) Read(key []byte) (record.Fields, bool, error) {
	return nil, false, fmt.Errorf("%w: lsm engine is a stub", storage.ErrUnsupported)
}

func (e *Engine) Scan(start, end []byte, columns []string) ([]record.Record, error) {
	return nil, fmt.Errorf("%w: lsm engine is a stub", storage.ErrUnsupported)
}

func (e *Engine) Delete(key []byte) error {
	return fmt.Errorf("%w: lsm engine is a stub", storage.ErrUnsupported)
}

// Close is a no-op; there is no resource to release.
func (e *Engine) Close() error { return nil }
