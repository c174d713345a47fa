package model

// Kind enumerates the field shapes the type model understands. Kind drives
// which built-in codec.Serializer a FieldDescriptor resolves to absent an
// explicit override.
type Kind int

const (
	// KindInvalid is the zero value; a compiled FieldDescriptor never
	// carries it.
	KindInvalid Kind = iota

	// KindBool is a protobuf bool.
	KindBool
	// KindInt32 is a plain (non-zigzag) signed 32-bit varint.
	KindInt32
	// KindInt32ZigZag is an sint32.
	KindInt32ZigZag
	// KindUInt32 is a uint32 varint.
	KindUInt32
	// KindFixed32 is an sfixed32/fixed32.
	KindFixed32
	// KindInt64 is a plain signed 64-bit varint.
	KindInt64
	// KindInt64ZigZag is an sint64.
	KindInt64ZigZag
	// KindUInt64 is a uint64 varint.
	KindUInt64
	// KindFixed64 is an sfixed64/fixed64.
	KindFixed64
	// KindFloat is a 32-bit IEEE-754 float.
	KindFloat
	// KindDouble is a 64-bit IEEE-754 float.
	KindDouble
	// KindString is a length-delimited UTF-8 string.
	KindString
	// KindBytes is a length-delimited opaque byte slice.
	KindBytes

	// KindEnum is a named integer type resolved through an enum mapping
	// (or written through, if the field is configured pass-through).
	KindEnum

	// KindMessage is a nested type resolved through the type model, encoded
	// as a length-delimited or grouped sub-item.
	KindMessage

	// KindList is a repeated scalar, enum, or message field backed by a Go
	// slice or array.
	KindList

	// KindMap is a protobuf map field, encoded as repeated two-field
	// (key=1, value=2) entry sub-messages.
	KindMap

	// KindSurrogate is a field, tagged `surrogate=name`, whose wire
	// representation is produced by converting through a registered
	// surrogate type.
	KindSurrogate
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindInt32ZigZag:
		return "sint32"
	case KindUInt32:
		return "uint32"
	case KindFixed32:
		return "fixed32"
	case KindInt64:
		return "int64"
	case KindInt64ZigZag:
		return "sint64"
	case KindUInt64:
		return "uint64"
	case KindFixed64:
		return "fixed64"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindEnum:
		return "enum"
	case KindMessage:
		return "message"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindSurrogate:
		return "surrogate"
	default:
		return "invalid"
	}
}

// scalar reports whether k is encoded as a single wire value (as opposed to
// a collection, map, message, or surrogate that wraps one).
func (k Kind) scalar() bool {
	switch k {
	case KindBool, KindInt32, KindInt32ZigZag, KindUInt32, KindFixed32,
		KindInt64, KindInt64ZigZag, KindUInt64, KindFixed64,
		KindFloat, KindDouble, KindString, KindBytes:
		return true
	default:
		return false
	}
}
