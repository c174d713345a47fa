package model

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-protomodel/protomodel/model/codec"
	"github.com/go-protomodel/protomodel/model/errs"
	"github.com/go-protomodel/protomodel/model/reflectx"
	"github.com/go-protomodel/protomodel/protostate"
	"github.com/go-protomodel/protomodel/wire"
)

// messageSerializer wraps desc's field table as a codec.Serializer for
// embedding: a singular message-typed field delegates to it, bounding the
// nested type's body with a sub-item per grouped's policy.
func messageSerializer(rv resolver, desc *TypeDescriptor, grouped bool) codec.Serializer {
	policy := protostate.Buffered
	if grouped {
		policy = protostate.Grouped
	}
	return codec.Message(policy,
		func(r *protostate.Reader, old interface{}) (interface{}, error) {
			return readMessageFields(rv, r, desc, old)
		},
		func(w *protostate.Writer, val interface{}) error {
			return writeMessageFields(rv, w, desc, val)
		},
	)
}

// fieldValue returns the reflectx.Value of fd on msg (a pointer to the
// owning struct).
func fieldValue(msg reflectx.Value, fd *FieldDescriptor) reflectx.Value {
	v := msg
	if v.Kind() == reflectx.Ptr {
		v = v.Elem()
	}
	return v.FieldByIndex(fd.index)
}

// descendTo repeatedly takes a struct value's embedded field 0 until its
// type is target, dereferencing pointers along the way. It is the
// mechanical heart of sub-type support: on write it extracts the
// base-level view of fields out of a more-derived concrete object; on read
// it locates the embedded base-level slot inside a freshly allocated
// derived value so the base's own fields can be merged into it.
func descendTo(v reflectx.Value, target reflectx.Type) reflectx.Value {
	cur := v
	for {
		sv := cur
		if sv.Kind() == reflectx.Ptr {
			sv = sv.Elem()
		}
		if sv.Type() == target {
			return sv
		}
		cur = sv.Field(0)
	}
}

// writeMessageFields encodes desc's own fields of root in tag order. If
// root's concrete (dynamic) type was registered as a sub-type of desc —
// directly or several AddSubType levels down — the sub-type's own fields
// are written first, as a nested sub-message at its registered tag,
// recursing to arbitrary depth; desc's own fields follow at this level,
// reproducing the derived-before-base wire order sub-typing requires.
func writeMessageFields(rv resolver, w *protostate.Writer, desc *TypeDescriptor, root interface{}) error {
	runtime := elemType(reflectx.TypeOf(root))
	if entry, ok := rv.resolveDerivedChild(runtime, desc); ok {
		tok := w.StartSubItem(entry.tag, protostate.Buffered)
		if err := writeMessageFields(rv, w, entry.desc, root); err != nil {
			return err
		}
		if err := w.EndSubItem(tok); err != nil {
			return err
		}
	}

	view := descendTo(reflectx.ValueOf(root), desc.GoType)
	for _, fd := range desc.Fields {
		fv := fieldValue(view, fd)
		if err := writeField(rv, w, fd, fv); err != nil {
			return fmt.Errorf("%s: %w", fd, err)
		}
	}
	return nil
}

func writeField(rv resolver, w *protostate.Writer, fd *FieldDescriptor, fv reflectx.Value) error {
	switch fd.Kind {
	case KindList:
		return writeListField(rv, w, fd, fv)
	case KindMap:
		return writeMapField(rv, w, fd, fv)
	default:
		return writeSingularField(w, fd, fv)
	}
}

// writeSingularField writes one scalar, enum, message, or surrogate value,
// skipping it entirely when it is the Go zero value and not Required —
// proto3's implicit-presence field-omission rule.
func writeSingularField(w *protostate.Writer, fd *FieldDescriptor, fv reflectx.Value) error {
	if fv.Kind() == reflectx.Ptr {
		if fv.IsNil() {
			if fd.Required {
				return fmt.Errorf("%w: required field is nil", errs.ConfigurationError)
			}
			return nil
		}
		return fd.serializer.Write(w, fd.Tag, fv.Interface())
	}
	if !fd.Required && isZero(fv) {
		return nil
	}
	return fd.serializer.Write(w, fd.Tag, fv.Interface())
}

func isZero(v reflectx.Value) bool {
	switch v.Kind() {
	case reflectx.Bool:
		return !v.Bool()
	case reflectx.Int, reflectx.Int8, reflectx.Int16, reflectx.Int32, reflectx.Int64:
		return v.Int() == 0
	case reflectx.Uint, reflectx.Uint8, reflectx.Uint16, reflectx.Uint32, reflectx.Uint64:
		return v.Uint() == 0
	case reflectx.Float32, reflectx.Float64:
		return v.Float() == 0
	case reflectx.String:
		return v.String() == ""
	case reflectx.Slice, reflectx.Map:
		return v.Len() == 0
	default:
		return false
	}
}

// writeListField writes a repeated field, either packed (one sub-item
// holding every element's raw value back to back) or unpacked (one field
// header per element).
func writeListField(rv resolver, w *protostate.Writer, fd *FieldDescriptor, fv reflectx.Value) error {
	n := fv.Len()
	if n == 0 {
		return nil
	}
	if fd.Packed && fd.serializer.Features()&codec.FeaturePackable != 0 {
		tok := w.StartSubItem(fd.Tag, protostate.Buffered)
		for i := 0; i < n; i++ {
			if err := writeElement(fd, w, fv.Index(i)); err != nil {
				return err
			}
		}
		return w.EndSubItem(tok)
	}
	for i := 0; i < n; i++ {
		if err := writeElement(fd, w, fv.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

// writeElement writes one list/map-value element. Every built-in
// codec.Serializer writes its own field header unconditionally, which a
// packed run cannot have per-element, so a packed element bypasses the
// serializer and goes straight through the writer's raw primitive methods.
func writeElement(fd *FieldDescriptor, w *protostate.Writer, ev reflectx.Value) error {
	if fd.Packed && fd.serializer.Features()&codec.FeaturePackable != 0 {
		return writeRawPackedValue(w, fd.ElemKind, ev)
	}
	if ev.Kind() == reflectx.Ptr && ev.IsNil() {
		return fmt.Errorf("%w: nil element in repeated field", errs.ConfigurationError)
	}
	return fd.serializer.Write(w, fd.Tag, ev.Interface())
}

// writeRawPackedValue writes one element's bare wire value with no field
// header, as required inside a packed run.
func writeRawPackedValue(w *protostate.Writer, k Kind, ev reflectx.Value) error {
	switch k {
	case KindBool:
		w.WriteBool(ev.Bool())
	case KindInt32:
		w.WriteInt32Default(int32(ev.Int()))
	case KindInt32ZigZag:
		w.WriteInt32ZigZag(int32(ev.Int()))
	case KindUInt32:
		w.WriteUInt32(uint32(ev.Uint()))
	case KindFixed32:
		w.WriteFixedInt32(int32(ev.Int()))
	case KindInt64:
		w.WriteInt64Default(ev.Int())
	case KindInt64ZigZag:
		w.WriteInt64ZigZag(ev.Int())
	case KindUInt64:
		w.WriteUInt64(ev.Uint())
	case KindFixed64:
		w.WriteFixedInt64(ev.Int())
	case KindFloat:
		w.WriteFloat(float32(ev.Float()))
	case KindDouble:
		w.WriteDouble(ev.Float())
	case KindEnum:
		w.WriteInt32Default(int32(ev.Int()))
	default:
		return fmt.Errorf("%w: kind %s is not packable", errs.ConfigurationError, k)
	}
	return nil
}

// writeMapField writes a map field as a run of two-field (key=1, value=2)
// entry sub-messages, one per map entry. Options.Deterministic sorts
// entries by key first.
func writeMapField(rv resolver, w *protostate.Writer, fd *FieldDescriptor, fv reflectx.Value) error {
	keys := fv.MapKeys()
	if len(keys) == 0 {
		return nil
	}
	if rv.options().Deterministic {
		sort.Slice(keys, func(i, j int) bool { return mapKeyLess(keys[i], keys[j]) })
	}
	keySerializer := scalarKindSerializer(fd.KeyKind)
	for _, k := range keys {
		v := fv.MapIndex(k)
		tok := w.StartSubItem(fd.Tag, protostate.Buffered)
		if err := keySerializer.Write(w, 1, k.Interface()); err != nil {
			return err
		}
		valIface := v.Interface()
		if v.Kind() == reflectx.Ptr && v.IsNil() {
			if err := w.EndSubItem(tok); err != nil {
				return err
			}
			continue
		}
		if err := fd.serializer.Write(w, 2, valIface); err != nil {
			return err
		}
		if err := w.EndSubItem(tok); err != nil {
			return err
		}
	}
	return nil
}

func mapKeyLess(a, b reflectx.Value) bool {
	switch a.Kind() {
	case reflectx.String:
		return a.String() < b.String()
	case reflectx.Int, reflectx.Int8, reflectx.Int16, reflectx.Int32, reflectx.Int64:
		return a.Int() < b.Int()
	case reflectx.Uint, reflectx.Uint8, reflectx.Uint16, reflectx.Uint32, reflectx.Uint64:
		return a.Uint() < b.Uint()
	case reflectx.Bool:
		return !a.Bool() && b.Bool()
	default:
		return false
	}
}

// readMessageFields decodes desc's own fields, plus any registered
// sub-type the wire data names, until the current sub-item (or the root
// message) ends. old, if non-nil, is reused as the destination for desc's
// own fields (merge semantics); otherwise a fresh desc.GoType is
// allocated. If a sub-type tag is encountered, the returned value's
// concrete type is the most-derived type decoded, with desc's own fields
// merged into its embedded base-level slot — this is the only case where
// the returned value's type differs from desc.GoType.
func readMessageFields(rv resolver, r *protostate.Reader, desc *TypeDescriptor, old interface{}) (interface{}, error) {
	var own reflectx.Value
	if old != nil {
		own = reflectx.ValueOf(old)
		if own.Kind() != reflectx.Ptr {
			p := reflectx.New(own.Type())
			p.Elem().Set(own)
			own = p
		}
	} else {
		own = reflectx.New(desc.GoType)
	}
	ownElem := own.Elem()

	var derived reflectx.Value
	for {
		tag, _, ok, err := r.ReadFieldHeader()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		if entry, isSubtype := desc.subtypes[tag]; isSubtype {
			tok, err := r.StartSubItem()
			if err != nil {
				return nil, err
			}
			v, err := readMessageFields(rv, r, entry.desc, nil)
			if err != nil {
				return nil, fmt.Errorf("tag %d: %w", tag, err)
			}
			if err := r.EndSubItem(tok); err != nil {
				return nil, err
			}
			derived = reflectx.ValueOf(v)
			continue
		}

		fd, known := desc.fieldByTag(tag)
		if !known {
			if rv.options().RejectUnknownFields {
				return nil, fmt.Errorf("%w: tag %d", errs.UnknownType, tag)
			}
			if err := r.SkipField(); err != nil {
				return nil, err
			}
			continue
		}

		if err := readField(rv, r, fd, ownElem); err != nil {
			return nil, fmt.Errorf("%s: %w", fd, err)
		}
	}

	if !derived.IsValid() {
		return own.Interface(), nil
	}
	descendTo(derived, desc.GoType).Set(ownElem)
	return derived.Interface(), nil
}

func readField(rv resolver, r *protostate.Reader, fd *FieldDescriptor, msg reflectx.Value) error {
	switch fd.Kind {
	case KindList:
		return readListField(r, fd, msg)
	case KindMap:
		return readMapField(r, fd, msg)
	default:
		return readSingularField(r, fd, msg)
	}
}

func readSingularField(r *protostate.Reader, fd *FieldDescriptor, msg reflectx.Value) error {
	fv := fieldValue(msg, fd)
	var old interface{}
	if fd.Kind == KindMessage || fd.Kind == KindSurrogate {
		if fv.Kind() == reflectx.Ptr && !fv.IsNil() {
			old = fv.Interface()
		}
	}
	v, err := fd.serializer.Read(r, old)
	if err != nil {
		return err
	}
	return assign(fv, v)
}

func assign(fv reflectx.Value, v interface{}) error {
	rv := reflectx.ValueOf(v)
	if fv.Kind() == reflectx.Ptr {
		if rv.Kind() == reflectx.Ptr {
			fv.Set(rv)
			return nil
		}
		p := reflectx.New(fv.Type().Elem())
		p.Elem().Set(rv)
		fv.Set(p)
		return nil
	}
	if rv.Kind() == reflectx.Ptr {
		rv = rv.Elem()
	}
	if !rv.Type().AssignableTo(fv.Type()) && rv.Type().ConvertibleTo(fv.Type()) {
		rv = rv.Convert(fv.Type())
	}
	fv.Set(rv)
	return nil
}

// readListField appends one or more elements to a repeated field: a single
// decode when the wire type is the element's own (unpacked), or a loop over
// a packed run's raw values when it is length-delimited and the element
// kind is packable.
func readListField(r *protostate.Reader, fd *FieldDescriptor, msg reflectx.Value) error {
	fv := fieldValue(msg, fd)
	_, wt := r.CurrentField()
	packableElem := fd.ElemKind.scalar() && fd.ElemKind != KindString && fd.ElemKind != KindBytes
	if wt == wire.LengthDelim && packableElem {
		payload, err := r.ReadBytes()
		if err != nil {
			return err
		}
		buf := wire.NewBuffer(payload)
		for !buf.EOF() {
			v, err := decodeRawPackedValue(buf, fd.ElemKind)
			if err != nil {
				return err
			}
			if err := appendElement(fv, v); err != nil {
				return err
			}
		}
		return nil
	}

	v, err := fd.serializer.Read(r, nil)
	if err != nil {
		return err
	}
	return appendElement(fv, v)
}

func appendElement(fv reflectx.Value, v interface{}) error {
	elemType := fv.Type().Elem()
	ev := reflectx.New(elemType).Elem()
	if err := assign(ev, v); err != nil {
		return err
	}
	fv.Set(reflectx.Append(fv, ev))
	return nil
}

// decodeRawPackedValue decodes one bare element value (no field header)
// from a packed run's raw payload buffer.
func decodeRawPackedValue(buf *wire.Buffer, k Kind) (interface{}, error) {
	switch k {
	case KindBool:
		v, err := buf.DecodeVarint()
		return v != 0, err
	case KindInt32:
		v, err := buf.DecodeVarint()
		return int32(v), err
	case KindInt32ZigZag:
		v, err := buf.DecodeVarint()
		return wire.DecodeZigZag32(v), err
	case KindUInt32:
		v, err := buf.DecodeVarint()
		return uint32(v), err
	case KindFixed32:
		v, err := buf.DecodeFixed32()
		return int32(v), err
	case KindInt64:
		v, err := buf.DecodeVarint()
		return int64(v), err
	case KindInt64ZigZag:
		v, err := buf.DecodeVarint()
		return wire.DecodeZigZag64(v), err
	case KindUInt64:
		return buf.DecodeVarint()
	case KindFixed64:
		v, err := buf.DecodeFixed64()
		return int64(v), err
	case KindFloat:
		v, err := buf.DecodeFixed32()
		return math.Float32frombits(v), err
	case KindDouble:
		v, err := buf.DecodeFixed64()
		return math.Float64frombits(v), err
	case KindEnum:
		v, err := buf.DecodeVarint()
		return int32(v), err
	default:
		return nil, fmt.Errorf("%w: kind %s is not packable", errs.ConfigurationError, k)
	}
}

// readMapField decodes one map entry sub-item (key=1, value=2) and inserts
// it into the map field, creating the map on first use.
func readMapField(r *protostate.Reader, fd *FieldDescriptor, msg reflectx.Value) error {
	fv := fieldValue(msg, fd)
	if fv.IsNil() {
		fv.Set(reflectx.MakeMap(fv.Type()))
	}

	tok, err := r.StartSubItem()
	if err != nil {
		return err
	}

	keySerializer := scalarKindSerializer(fd.KeyKind)
	var key, val interface{}
	for {
		tag, _, ok, err := r.ReadFieldHeader()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		switch tag {
		case 1:
			key, err = keySerializer.Read(r, nil)
		case 2:
			val, err = fd.serializer.Read(r, nil)
		default:
			err = r.SkipField()
		}
		if err != nil {
			return err
		}
	}
	if err := r.EndSubItem(tok); err != nil {
		return err
	}

	kv := reflectx.New(fd.KeyType).Elem()
	if key != nil {
		if err := assign(kv, key); err != nil {
			return err
		}
	}
	vv := reflectx.New(fd.ElemType).Elem()
	if val != nil {
		if err := assign(vv, val); err != nil {
			return err
		}
	}
	fv.SetMapIndex(kv, vv)
	return nil
}
