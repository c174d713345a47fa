package codec

import (
	"fmt"

	"github.com/go-protomodel/protomodel/model/reflectx"
	"github.com/go-protomodel/protomodel/protostate"
	"github.com/go-protomodel/protomodel/wire"
)

// Bool serializes a Go bool.
var Bool Serializer = boolCodec{}

type boolCodec struct{}

func (boolCodec) Features() Features { return FeaturePackable }

func (boolCodec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadBool()
}

func (boolCodec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toBool(val)
	if !ok {
		return fmt.Errorf("codec: Bool.Write got %T, want bool", val)
	}
	w.WriteFieldHeader(tag, wire.Varint)
	w.WriteBool(v)
	return nil
}

// Int32Default serializes a plain (non-zigzag) signed int32.
var Int32Default Serializer = int32DefaultCodec{}

type int32DefaultCodec struct{}

func (int32DefaultCodec) Features() Features { return FeaturePackable }

func (int32DefaultCodec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadInt32Default()
}

func (int32DefaultCodec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toInt32(val)
	if !ok {
		return fmt.Errorf("codec: Int32Default.Write got %T, want int32-compatible", val)
	}
	w.WriteFieldHeader(tag, wire.Varint)
	w.WriteInt32Default(v)
	return nil
}

// Int32ZigZag serializes an sint32.
var Int32ZigZag Serializer = int32ZigZagCodec{}

type int32ZigZagCodec struct{}

func (int32ZigZagCodec) Features() Features { return FeaturePackable }

func (int32ZigZagCodec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadInt32ZigZag()
}

func (int32ZigZagCodec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toInt32(val)
	if !ok {
		return fmt.Errorf("codec: Int32ZigZag.Write got %T, want int32-compatible", val)
	}
	w.WriteFieldHeader(tag, wire.Varint)
	w.WriteInt32ZigZag(v)
	return nil
}

// UInt32 serializes a uint32 varint.
var UInt32 Serializer = uint32Codec{}

type uint32Codec struct{}

func (uint32Codec) Features() Features { return FeaturePackable }

func (uint32Codec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadUInt32()
}

func (uint32Codec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toUint32(val)
	if !ok {
		return fmt.Errorf("codec: UInt32.Write got %T, want uint32-compatible", val)
	}
	w.WriteFieldHeader(tag, wire.Varint)
	w.WriteUInt32(v)
	return nil
}

// FixedInt32 serializes an sfixed32/fixed32.
var FixedInt32 Serializer = fixedInt32Codec{}

type fixedInt32Codec struct{}

func (fixedInt32Codec) Features() Features { return FeaturePackable }

func (fixedInt32Codec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadFixedInt32()
}

func (fixedInt32Codec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toInt32(val)
	if !ok {
		return fmt.Errorf("codec: FixedInt32.Write got %T, want int32-compatible", val)
	}
	w.WriteFieldHeader(tag, wire.Fixed32)
	w.WriteFixedInt32(v)
	return nil
}

// Int64Default serializes a plain signed int64.
var Int64Default Serializer = int64DefaultCodec{}

type int64DefaultCodec struct{}

func (int64DefaultCodec) Features() Features { return FeaturePackable }

func (int64DefaultCodec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadInt64Default()
}

func (int64DefaultCodec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toInt64(val)
	if !ok {
		return fmt.Errorf("codec: Int64Default.Write got %T, want int64-compatible", val)
	}
	w.WriteFieldHeader(tag, wire.Varint)
	w.WriteInt64Default(v)
	return nil
}

// Int64ZigZag serializes an sint64.
var Int64ZigZag Serializer = int64ZigZagCodec{}

type int64ZigZagCodec struct{}

func (int64ZigZagCodec) Features() Features { return FeaturePackable }

func (int64ZigZagCodec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadInt64ZigZag()
}

func (int64ZigZagCodec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toInt64(val)
	if !ok {
		return fmt.Errorf("codec: Int64ZigZag.Write got %T, want int64-compatible", val)
	}
	w.WriteFieldHeader(tag, wire.Varint)
	w.WriteInt64ZigZag(v)
	return nil
}

// UInt64 serializes a uint64 varint.
var UInt64 Serializer = uint64Codec{}

type uint64Codec struct{}

func (uint64Codec) Features() Features { return FeaturePackable }

func (uint64Codec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadUInt64()
}

func (uint64Codec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toUint64(val)
	if !ok {
		return fmt.Errorf("codec: UInt64.Write got %T, want uint64-compatible", val)
	}
	w.WriteFieldHeader(tag, wire.Varint)
	w.WriteUInt64(v)
	return nil
}

// FixedInt64 serializes an sfixed64/fixed64.
var FixedInt64 Serializer = fixedInt64Codec{}

type fixedInt64Codec struct{}

func (fixedInt64Codec) Features() Features { return FeaturePackable }

func (fixedInt64Codec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadFixedInt64()
}

func (fixedInt64Codec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toInt64(val)
	if !ok {
		return fmt.Errorf("codec: FixedInt64.Write got %T, want int64-compatible", val)
	}
	w.WriteFieldHeader(tag, wire.Fixed64)
	w.WriteFixedInt64(v)
	return nil
}

// Float serializes a float32.
var Float Serializer = floatCodec{}

type floatCodec struct{}

func (floatCodec) Features() Features { return FeaturePackable }

func (floatCodec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadFloat()
}

func (floatCodec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toFloat32(val)
	if !ok {
		return fmt.Errorf("codec: Float.Write got %T, want float32", val)
	}
	w.WriteFieldHeader(tag, wire.Fixed32)
	w.WriteFloat(v)
	return nil
}

// Double serializes a float64.
var Double Serializer = doubleCodec{}

type doubleCodec struct{}

func (doubleCodec) Features() Features { return FeaturePackable }

func (doubleCodec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadDouble()
}

func (doubleCodec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toFloat64(val)
	if !ok {
		return fmt.Errorf("codec: Double.Write got %T, want float64", val)
	}
	w.WriteFieldHeader(tag, wire.Fixed64)
	w.WriteDouble(v)
	return nil
}

// String serializes a UTF-8 Go string. Not packable: length-delimited
// values are never eligible for packed repeated encoding.
var String Serializer = stringCodec{}

type stringCodec struct{}

func (stringCodec) Features() Features { return 0 }

func (stringCodec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadString()
}

func (stringCodec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toString(val)
	if !ok {
		return fmt.Errorf("codec: String.Write got %T, want string", val)
	}
	w.WriteFieldHeader(tag, wire.LengthDelim)
	w.WriteString(v)
	return nil
}

// Bytes serializes a []byte. Not packable.
var Bytes Serializer = bytesCodec{}

type bytesCodec struct{}

func (bytesCodec) Features() Features { return 0 }

func (bytesCodec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	return r.ReadBytes()
}

func (bytesCodec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toBytes(val)
	if !ok {
		return fmt.Errorf("codec: Bytes.Write got %T, want []byte", val)
	}
	w.WriteFieldHeader(tag, wire.LengthDelim)
	w.WriteBytes(v)
	return nil
}

func toBool(val interface{}) (bool, bool) {
	if v, ok := val.(bool); ok {
		return v, true
	}
	rv := reflectx.ValueOf(val)
	if rv.Kind() == reflectx.Bool {
		return rv.Bool(), true
	}
	return false, false
}

func toFloat32(val interface{}) (float32, bool) {
	if v, ok := val.(float32); ok {
		return v, true
	}
	rv := reflectx.ValueOf(val)
	if rv.Kind() == reflectx.Float32 {
		return float32(rv.Float()), true
	}
	return 0, false
}

func toFloat64(val interface{}) (float64, bool) {
	if v, ok := val.(float64); ok {
		return v, true
	}
	rv := reflectx.ValueOf(val)
	if rv.Kind() == reflectx.Float64 {
		return rv.Float(), true
	}
	return 0, false
}

func toString(val interface{}) (string, bool) {
	if v, ok := val.(string); ok {
		return v, true
	}
	rv := reflectx.ValueOf(val)
	if rv.Kind() == reflectx.String {
		return rv.String(), true
	}
	return "", false
}

func toBytes(val interface{}) ([]byte, bool) {
	if v, ok := val.([]byte); ok {
		return v, true
	}
	rv := reflectx.ValueOf(val)
	if rv.Kind() == reflectx.Slice && rv.Type().Elem().Kind() == reflectx.Uint8 {
		return rv.Bytes(), true
	}
	return nil, false
}

// toInt32, toUint32, toInt64, and toUint64 accept val's own declared Go
// type verbatim (int32, int64, ...) as well as any named type sharing the
// same underlying kind — an enum's named int32 type, for instance, never
// arrives as a literal int32 through the interface{} val carries, since
// package model always boxes the field's own declared Go type.
func toInt32(val interface{}) (int32, bool) {
	switch v := val.(type) {
	case int32:
		return v, true
	case int:
		return int32(v), true
	}
	rv := reflectx.ValueOf(val)
	switch rv.Kind() {
	case reflectx.Int32, reflectx.Int, reflectx.Int8, reflectx.Int16:
		return int32(rv.Int()), true
	}
	return 0, false
}

func toUint32(val interface{}) (uint32, bool) {
	switch v := val.(type) {
	case uint32:
		return v, true
	case uint:
		return uint32(v), true
	}
	rv := reflectx.ValueOf(val)
	switch rv.Kind() {
	case reflectx.Uint32, reflectx.Uint, reflectx.Uint8, reflectx.Uint16:
		return uint32(rv.Uint()), true
	}
	return 0, false
}

func toInt64(val interface{}) (int64, bool) {
	switch v := val.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	}
	rv := reflectx.ValueOf(val)
	switch rv.Kind() {
	case reflectx.Int64, reflectx.Int, reflectx.Int8, reflectx.Int16, reflectx.Int32:
		return rv.Int(), true
	}
	return 0, false
}

func toUint64(val interface{}) (uint64, bool) {
	switch v := val.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	}
	rv := reflectx.ValueOf(val)
	switch rv.Kind() {
	case reflectx.Uint64, reflectx.Uint, reflectx.Uint8, reflectx.Uint16, reflectx.Uint32:
		return rv.Uint(), true
	}
	return 0, false
}
