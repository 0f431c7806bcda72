package storage

import "errors"

// Sentinel error kinds from the error-handling design. Callers use
// errors.Is to classify a failure; engines wrap these with fmt.Errorf("%w: ...").
var (
	// ErrCorruption signals a magic mismatch, invalid page role, overflow
	// cycle, or other on-disk inconsistency. The operation that surfaced it
	// is aborted.
	ErrCorruption = errors.New("jparque: corruption detected")

	// ErrCapacityExceeded means an entry could not be placed: a split half
	// or a new root that does not fit one page, a page too small for
	// overflow payloads, or an overflow chain past its size cap. Under
	// normal operation splits absorb capacity pressure before this surfaces.
	ErrCapacityExceeded = errors.New("jparque: capacity exceeded")

	// ErrInvalidArgument signals a schema validation failure: a missing
	// required field, a wrong scalar type, or a repeated field that isn't
	// list-shaped.
	ErrInvalidArgument = errors.New("jparque: invalid argument")

	// ErrUnsupported signals a requested operation or codec this build does
	// not implement: an unsupported compression codec, a column type the
	// columnar codec cannot encode, or any data operation on the lsm stub.
	ErrUnsupported = errors.New("jparque: unsupported operation")
)
