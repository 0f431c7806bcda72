package parquet

import (
	"fmt"
	"math"

	"jparque/record"
	"jparque/schema"
	"jparque/storage"
)

// kindForType reports the record.Kind a field's primitive type must carry,
// or false for a type this codec cannot encode as a scalar (Int96,
// FixedLenByteArray — recognized wire tags, never produced or accepted).
func kindForType(t schema.Type) (record.Kind, bool) {
	switch t {
	case schema.TypeBoolean:
		return record.KindBool, true
	case schema.TypeInt32:
		return record.KindInt32, true
	case schema.TypeInt64:
		return record.KindInt64, true
	case schema.TypeFloat:
		return record.KindFloat32, true
	case schema.TypeDouble:
		return record.KindFloat64, true
	case schema.TypeBinary:
		return record.KindString, true
	default:
		return 0, false
	}
}

// validateFieldValue checks v against field per the write path's validation
// rules: required fields must be present, repeated fields must be
// list-shaped with elements matching the primitive type, and present
// scalars must carry the field's declared type.
func validateFieldValue(field schema.Field, v record.Value) error {
	present := v.Kind != record.KindNull

	if field.Repetition == schema.Required && !present {
		return fmt.Errorf("%w: missing required field %q", storage.ErrInvalidArgument, field.Name)
	}
	if !present {
		return nil
	}

	wantKind, ok := kindForType(field.Type)
	if !ok {
		return fmt.Errorf("%w: field %q has unsupported type %s", storage.ErrUnsupported, field.Name, field.Type)
	}

	if field.Repetition == schema.Repeated {
		if v.Kind != record.KindList {
			return fmt.Errorf("%w: field %q is repeated but value is not a list", storage.ErrInvalidArgument, field.Name)
		}
		for i, item := range v.List {
			if item.Kind != wantKind {
				return fmt.Errorf("%w: field %q element %d: expected %s, got %s",
					storage.ErrInvalidArgument, field.Name, i, wantKind, item.Kind)
			}
		}
		return nil
	}

	if v.Kind != wantKind {
		return fmt.Errorf("%w: field %q: expected %s, got %s", storage.ErrInvalidArgument, field.Name, wantKind, v.Kind)
	}
	return nil
}

// encodeFieldValue appends v to buf per field's repetition rule: optional
// fields get a 1-byte present/absent flag, repeated fields get a 4-byte
// count followed by that many single values, everything else is a single
// value.
func encodeFieldValue(buf []byte, field schema.Field, v record.Value) []byte {
	present := v.Kind != record.KindNull

	if field.Repetition == schema.Optional {
		if !present {
			return append(buf, 1)
		}
		buf = append(buf, 0)
	}

	if field.Repetition == schema.Repeated {
		items := v.List
		buf = appendInt32(buf, int32(len(items)))
		for _, item := range items {
			buf = encodeSingleValue(buf, field, item)
		}
		return buf
	}

	return encodeSingleValue(buf, field, v)
}

func encodeSingleValue(buf []byte, field schema.Field, v record.Value) []byte {
	switch field.Type {
	case schema.TypeBoolean:
		if v.Bool {
			return append(buf, 1)
		}
		return append(buf, 0)
	case schema.TypeInt32:
		return appendInt32(buf, v.Int32)
	case schema.TypeInt64:
		return appendInt64(buf, v.Int64)
	case schema.TypeFloat:
		return appendInt32(buf, int32(math.Float32bits(v.Float32)))
	case schema.TypeDouble:
		return appendInt64(buf, int64(math.Float64bits(v.Float64)))
	case schema.TypeBinary:
		return appendLenPrefixed(buf, []byte(v.Str))
	default:
		return buf
	}
}

// decodeFieldValue is the inverse of encodeFieldValue, returning the decoded
// value and the number of bytes consumed.
func decodeFieldValue(data []byte, pos int, field schema.Field) (record.Value, int, error) {
	if field.Repetition == schema.Optional {
		if pos+1 > len(data) {
			return record.Value{}, 0, fmt.Errorf("%w: truncated optional-field flag for %q", storage.ErrCorruption, field.Name)
		}
		absent := data[pos] == 1
		pos++
		if absent {
			return record.Null(), pos, nil
		}
	}

	if field.Repetition == schema.Repeated {
		if pos+4 > len(data) {
			return record.Value{}, 0, fmt.Errorf("%w: truncated repeated-field count for %q", storage.ErrCorruption, field.Name)
		}
		count := int(readInt32(data, pos))
		pos += 4
		if count < 0 {
			return record.Value{}, 0, fmt.Errorf("%w: negative repeated-field count for %q", storage.ErrCorruption, field.Name)
		}
		items := make([]record.Value, 0, count)
		for i := 0; i < count; i++ {
			item, next, err := decodeSingleValue(data, pos, field)
			if err != nil {
				return record.Value{}, 0, err
			}
			pos = next
			items = append(items, item)
		}
		return record.ListValue(items), pos, nil
	}

	return decodeSingleValue(data, pos, field)
}

func decodeSingleValue(data []byte, pos int, field schema.Field) (record.Value, int, error) {
	switch field.Type {
	case schema.TypeBoolean:
		if pos+1 > len(data) {
			return record.Value{}, 0, fmt.Errorf("%w: truncated bool for %q", storage.ErrCorruption, field.Name)
		}
		return record.BoolValue(data[pos] != 0), pos + 1, nil
	case schema.TypeInt32:
		if pos+4 > len(data) {
			return record.Value{}, 0, fmt.Errorf("%w: truncated int32 for %q", storage.ErrCorruption, field.Name)
		}
		return record.Int32Value(readInt32(data, pos)), pos + 4, nil
	case schema.TypeInt64:
		if pos+8 > len(data) {
			return record.Value{}, 0, fmt.Errorf("%w: truncated int64 for %q", storage.ErrCorruption, field.Name)
		}
		return record.Int64Value(readInt64(data, pos)), pos + 8, nil
	case schema.TypeFloat:
		if pos+4 > len(data) {
			return record.Value{}, 0, fmt.Errorf("%w: truncated float for %q", storage.ErrCorruption, field.Name)
		}
		return record.Float32Value(math.Float32frombits(uint32(readInt32(data, pos)))), pos + 4, nil
	case schema.TypeDouble:
		if pos+8 > len(data) {
			return record.Value{}, 0, fmt.Errorf("%w: truncated double for %q", storage.ErrCorruption, field.Name)
		}
		return record.Float64Value(math.Float64frombits(uint64(readInt64(data, pos)))), pos + 8, nil
	case schema.TypeBinary:
		b, next, err := readLenPrefixed(data, pos)
		if err != nil {
			return record.Value{}, 0, fmt.Errorf("binary field %q: %w", field.Name, err)
		}
		return record.StringValue(string(b)), next, nil
	default:
		return record.Value{}, 0, fmt.Errorf("%w: field %q has unsupported type %s", storage.ErrUnsupported, field.Name, field.Type)
	}
}
