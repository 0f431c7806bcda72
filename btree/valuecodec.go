package btree

import (
	"encoding/binary"
	"fmt"
	"math"

	"jparque/record"
)

// Wire tags for record.Value variants, per the field-map byte stream this
// engine stores inline (or via overflow) in leaf pages.
const (
	tagNull    = 0
	tagInt32   = 1
	tagInt64   = 2
	tagFloat32 = 3
	tagFloat64 = 4
	tagBool    = 5
	tagString  = 6
	tagList    = 7
)

// EncodeValue serializes fields as [u32 count] followed by count entries of
// [u32 keyLen][key][u8 tag][payload]. Entries whose key is empty are
// skipped; the emitted count reflects only the entries actually written.
func EncodeValue(fields record.Fields) []byte {
	buf := make([]byte, 4)
	count := 0

	for key, v := range fields {
		if key == "" {
			continue
		}
		buf = appendUint32(buf, uint32(len(key)))
		buf = append(buf, key...)
		buf = appendTaggedValue(buf, v)
		count++
	}

	binary.BigEndian.PutUint32(buf[0:4], uint32(count))
	return buf
}

func appendTaggedValue(buf []byte, v record.Value) []byte {
	switch v.Kind {
	case record.KindNull:
		return append(buf, tagNull)
	case record.KindInt32:
		buf = append(buf, tagInt32)
		return appendUint32(buf, uint32(v.Int32))
	case record.KindInt64:
		buf = append(buf, tagInt64)
		return appendUint64(buf, uint64(v.Int64))
	case record.KindFloat32:
		buf = append(buf, tagFloat32)
		return appendUint32(buf, math.Float32bits(v.Float32))
	case record.KindFloat64:
		buf = append(buf, tagFloat64)
		return appendUint64(buf, math.Float64bits(v.Float64))
	case record.KindBool:
		buf = append(buf, tagBool)
		if v.Bool {
			return append(buf, 1)
		}
		return append(buf, 0)
	case record.KindString:
		buf = append(buf, tagString)
		buf = appendUint32(buf, uint32(len(v.Str)))
		return append(buf, v.Str...)
	case record.KindList:
		buf = append(buf, tagList)
		buf = appendUint32(buf, uint32(len(v.List)))
		for _, item := range v.List {
			buf = appendTaggedValue(buf, item)
		}
		return buf
	default:
		// record.FromAny already coerces anything outside the tagged set to
		// KindString before a Value reaches here; this only guards against a
		// future Kind added without a matching wire tag.
		str := fmt.Sprintf("%v", v.Interface())
		buf = append(buf, tagString)
		buf = appendUint32(buf, uint32(len(str)))
		return append(buf, str...)
	}
}

func appendUint32(buf []byte, n uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], n)
	return append(buf, tmp[:]...)
}

func appendUint64(buf []byte, n uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], n)
	return append(buf, tmp[:]...)
}

// DecodeValue parses bytes produced by EncodeValue. Decoding is
// intentionally lenient: on malformed or truncated input it returns the
// best-effort partial map decoded so far rather than an error, per the
// value codec's documented availability-over-strictness boundary.
func DecodeValue(data []byte) record.Fields {
	fields := make(record.Fields)
	if len(data) < 4 {
		return fields
	}
	count := binary.BigEndian.Uint32(data[0:4])
	pos := 4

	for i := uint32(0); i < count; i++ {
		if pos+4 > len(data) {
			return fields
		}
		keyLen := int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
		if keyLen < 0 || pos+keyLen > len(data) {
			return fields
		}
		key := string(data[pos : pos+keyLen])
		pos += keyLen

		if pos+1 > len(data) {
			return fields
		}
		tag := data[pos]
		pos++

		v, next, ok := decodeTaggedValue(tag, data, pos)
		if !ok {
			return fields
		}
		pos = next
		fields[key] = v
	}
	return fields
}

func decodeTaggedValue(tag byte, data []byte, pos int) (record.Value, int, bool) {
	switch tag {
	case tagNull:
		return record.Null(), pos, true
	case tagInt32:
		if pos+4 > len(data) {
			return record.Value{}, pos, false
		}
		return record.Int32Value(int32(binary.BigEndian.Uint32(data[pos:]))), pos + 4, true
	case tagInt64:
		if pos+8 > len(data) {
			return record.Value{}, pos, false
		}
		return record.Int64Value(int64(binary.BigEndian.Uint64(data[pos:]))), pos + 8, true
	case tagFloat32:
		if pos+4 > len(data) {
			return record.Value{}, pos, false
		}
		bits := binary.BigEndian.Uint32(data[pos:])
		return record.Float32Value(math.Float32frombits(bits)), pos + 4, true
	case tagFloat64:
		if pos+8 > len(data) {
			return record.Value{}, pos, false
		}
		bits := binary.BigEndian.Uint64(data[pos:])
		return record.Float64Value(math.Float64frombits(bits)), pos + 8, true
	case tagBool:
		if pos+1 > len(data) {
			return record.Value{}, pos, false
		}
		return record.BoolValue(data[pos] != 0), pos + 1, true
	case tagString:
		if pos+4 > len(data) {
			return record.Value{}, pos, false
		}
		strLen := int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
		if strLen < 0 || pos+strLen > len(data) {
			return record.Value{}, pos, false
		}
		return record.StringValue(string(data[pos : pos+strLen])), pos + strLen, true
	case tagList:
		if pos+4 > len(data) {
			return record.Value{}, pos, false
		}
		count := int(binary.BigEndian.Uint32(data[pos:]))
		pos += 4
		if count < 0 {
			return record.Value{}, pos, false
		}
		items := make([]record.Value, 0, count)
		for i := 0; i < count; i++ {
			if pos+1 > len(data) {
				return record.Value{}, pos, false
			}
			itemTag := data[pos]
			pos++
			item, next, ok := decodeTaggedValue(itemTag, data, pos)
			if !ok {
				return record.Value{}, pos, false
			}
			pos = next
			items = append(items, item)
		}
		return record.ListValue(items), pos, true
	default:
		return record.Value{}, pos, false
	}
}
