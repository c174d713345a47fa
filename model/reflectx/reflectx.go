// Package reflectx wraps github.com/goccy/go-reflect, a drop-in
// accelerated replacement for the standard library's reflect package, so
// that package model performs struct introspection (TypeOf, struct field
// enumeration, value get/set during Read/Write) through the faster
// implementation without spreading the import across every file that needs
// reflection.
package reflectx

import (
	goreflect "github.com/goccy/go-reflect"
)

// Type is an alias for the accelerated reflect.Type.
type Type = goreflect.Type

// Value is an alias for the accelerated reflect.Value.
type Value = goreflect.Value

// Kind is an alias for the accelerated reflect.Kind.
type Kind = goreflect.Kind

// StructField is an alias for the accelerated reflect.StructField.
type StructField = goreflect.StructField

// Kind constants, re-exported for callers that switch on a Type's Kind
// without importing goccy/go-reflect directly.
const (
	Invalid = goreflect.Invalid
	Bool    = goreflect.Bool
	Int     = goreflect.Int
	Int8    = goreflect.Int8
	Int16   = goreflect.Int16
	Int32   = goreflect.Int32
	Int64   = goreflect.Int64
	Uint    = goreflect.Uint
	Uint8   = goreflect.Uint8
	Uint16  = goreflect.Uint16
	Uint32  = goreflect.Uint32
	Uint64  = goreflect.Uint64
	Float32 = goreflect.Float32
	Float64 = goreflect.Float64
	String  = goreflect.String
	Slice     = goreflect.Slice
	Array     = goreflect.Array
	Map       = goreflect.Map
	Struct    = goreflect.Struct
	Ptr       = goreflect.Ptr
	Interface = goreflect.Interface
)

// TypeOf returns the accelerated reflect.Type describing v's dynamic type.
func TypeOf(v interface{}) Type { return goreflect.TypeOf(v) }

// ValueOf returns the accelerated reflect.Value wrapping v.
func ValueOf(v interface{}) Value { return goreflect.ValueOf(v) }

// Indirect dereferences a pointer Value, matching reflect.Indirect.
func Indirect(v Value) Value { return goreflect.Indirect(v) }

// New returns a Value representing a pointer to a new zero value of t.
func New(t Type) Value { return goreflect.New(t) }

// Append appends values to slice s and returns the resulting slice,
// matching reflect.Append.
func Append(s Value, x ...Value) Value { return goreflect.Append(s, x...) }

// MakeMap creates a new empty Value of map type t, matching reflect.MakeMap.
func MakeMap(t Type) Value { return goreflect.MakeMap(t) }
