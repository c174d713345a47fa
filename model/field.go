package model

import (
	"fmt"

	"github.com/go-protomodel/protomodel/model/codec"
	"github.com/go-protomodel/protomodel/model/reflectx"
)

// FieldDescriptor describes one wire-visible field of a compiled
// TypeDescriptor: its tag number, where to find it on the Go struct via
// reflection, and everything the field-dispatch loop in fields.go needs to
// read or write it.
type FieldDescriptor struct {
	Tag  int32
	Name string

	Kind Kind

	// ElemKind/KeyKind describe the value (and, for maps, key) kind when
	// Kind is KindList or KindMap. For a scalar or message field they are
	// KindInvalid.
	ElemKind Kind
	KeyKind  Kind

	Packed   bool
	Grouped  bool
	Required bool

	// GoType is the declared Go field type (before stripping any slice/map
	// wrapper). ElemType and KeyType are the element and map-key Go types,
	// set only when Kind is KindList or KindMap.
	GoType   reflectx.Type
	ElemType reflectx.Type
	KeyType  reflectx.Type

	// index is the reflectx.Value.FieldByIndex path to this field on its
	// owning struct.
	index []int

	// subType is the nested TypeDescriptor for a message-shaped field
	// (Kind==KindMessage, or ElemKind==KindMessage for a list/map value).
	subType *TypeDescriptor

	// enumDomain is set when Kind (or ElemKind) is KindEnum.
	enumDomain *codec.EnumDomain

	// surrogateName, if non-empty, names a surrogate registered on the
	// owning TypeModel via SetSurrogate that converts this field's declared
	// Go type to and from its wire-visible representation.
	surrogateName string

	// serializer is the resolved per-element codec.Serializer: for a
	// scalar or message field it serializes the whole field; for a list or
	// map it serializes one element (or, for maps, one value — keys use
	// a plain scalar serializer selected by KeyKind).
	serializer codec.Serializer
}

// scalarKindSerializer returns the built-in codec.Serializer for a scalar
// Kind, or nil if k does not name one (e.g. KindMessage, KindList).
func scalarKindSerializer(k Kind) codec.Serializer {
	switch k {
	case KindBool:
		return codec.Bool
	case KindInt32:
		return codec.Int32Default
	case KindInt32ZigZag:
		return codec.Int32ZigZag
	case KindUInt32:
		return codec.UInt32
	case KindFixed32:
		return codec.FixedInt32
	case KindInt64:
		return codec.Int64Default
	case KindInt64ZigZag:
		return codec.Int64ZigZag
	case KindUInt64:
		return codec.UInt64
	case KindFixed64:
		return codec.FixedInt64
	case KindFloat:
		return codec.Float
	case KindDouble:
		return codec.Double
	case KindString:
		return codec.String
	case KindBytes:
		return codec.Bytes
	default:
		return nil
	}
}

func (f *FieldDescriptor) String() string {
	return fmt.Sprintf("field %s (tag %d, %s)", f.Name, f.Tag, f.Kind)
}
