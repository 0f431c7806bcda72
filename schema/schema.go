// Package schema models the Parquet-shaped message type used by the
// columnar codec: an ordered list of typed, annotated fields.
package schema

import "fmt"

// Type is a primitive column type. Values match the Parquet spec family and
// must not be renumbered; they are written verbatim into file metadata.
type Type int32

const (
	TypeBoolean           Type = 0
	TypeInt32             Type = 1
	TypeInt64             Type = 2
	TypeInt96             Type = 3
	TypeFloat             Type = 4
	TypeDouble            Type = 5
	TypeBinary            Type = 6
	TypeFixedLenByteArray Type = 7
)

func (t Type) String() string {
	switch t {
	case TypeBoolean:
		return "boolean"
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeInt96:
		return "int96"
	case TypeFloat:
		return "float"
	case TypeDouble:
		return "double"
	case TypeBinary:
		return "binary"
	case TypeFixedLenByteArray:
		return "fixed_len_byte_array"
	default:
		return fmt.Sprintf("type(%d)", int32(t))
	}
}

// Repetition describes how many times a field may occur per record.
type Repetition int32

const (
	Required Repetition = 0
	Optional Repetition = 1
	Repeated Repetition = 2
)

func (r Repetition) String() string {
	switch r {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case Repeated:
		return "repeated"
	default:
		return fmt.Sprintf("repetition(%d)", int32(r))
	}
}

// OriginalType is a semantic annotation layered on top of a primitive Type,
// e.g. a binary column carrying UTF-8 text. -1 (no annotation) is
// represented by the zero value of *OriginalType being nil in Field.
type OriginalType int32

const (
	UTF8            OriginalType = 0
	Map             OriginalType = 1
	List            OriginalType = 2
	Decimal         OriginalType = 3
	Date            OriginalType = 4
	TimeMillis      OriginalType = 5
	TimestampMillis OriginalType = 6
	Interval        OriginalType = 7
)

// Field describes a single named column of a MessageType.
type Field struct {
	ID           int
	Name         string
	Type         Type
	Repetition   Repetition
	OriginalType *OriginalType // nil means "no semantic annotation"
}

// NewField builds a required/optional/repeated field with no annotation.
func NewField(id int, name string, t Type, rep Repetition) Field {
	return Field{ID: id, Name: name, Type: t, Repetition: rep}
}

// WithOriginalType returns a copy of f annotated with ot.
func (f Field) WithOriginalType(ot OriginalType) Field {
	f.OriginalType = &ot
	return f
}

// MessageType is an ordered list of fields with a version counter, modeling
// the schema of one Parquet-shaped file.
type MessageType struct {
	Name    string
	Fields  []Field
	Version int

	// Predecessor, if non-nil, names the version this schema evolved from.
	// No migration logic is implied; it exists for annotation purposes only.
	Predecessor *int
}

// NewMessageType constructs a version-1 schema with no predecessor.
func NewMessageType(name string, fields ...Field) *MessageType {
	return &MessageType{Name: name, Fields: fields, Version: 1}
}

// FieldByName returns the field with the given name, or false if absent.
func (m *MessageType) FieldByName(name string) (Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
