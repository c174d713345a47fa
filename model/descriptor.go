package model

import (
	"fmt"
	"sort"

	"github.com/go-protomodel/protomodel/model/codec"
	"github.com/go-protomodel/protomodel/model/errs"
	"github.com/go-protomodel/protomodel/model/reflectx"
)

// TypeDescriptor is the compiled wire shape of one Go type: its ordered
// field table plus a tag-indexed lookup, built once by reflecting over the
// type's struct fields and their `protomodel` tags.
type TypeDescriptor struct {
	GoType reflectx.Type
	Fields []*FieldDescriptor

	byTag map[int32]*FieldDescriptor

	// subtypes routes a derived type's wire tag — which belongs to no
	// FieldDescriptor of its own — to the derived TypeDescriptor a
	// length-delimited sub-message at that tag decodes as. Populated by
	// TypeModel.AddSubType, not by buildTypeDescriptor: a base type's
	// sub-types are registered independently of (and typically after) its
	// own fields are compiled.
	subtypes map[int32]*subtypeEntry

	// subtypesByType is the same registrations indexed by the derived Go
	// type, for write-side dispatch from a value's runtime type.
	subtypesByType map[reflectx.Type]*subtypeEntry
}

// subtypeEntry is one derived type registered under a base TypeDescriptor
// via TypeModel.AddSubType: the wire tag its sub-message occupies and its
// own compiled TypeDescriptor.
type subtypeEntry struct {
	tag  int32
	desc *TypeDescriptor
}

func (td *TypeDescriptor) fieldByTag(tag int32) (*FieldDescriptor, bool) {
	f, ok := td.byTag[tag]
	return f, ok
}

// resolver lets descriptor construction recurse into nested message types,
// resolve enum domains, look up registered surrogates, and climb from a
// concrete runtime type to the derived-type entry registered for it under
// some ancestor TypeDescriptor, without the descriptor builder needing to
// embed the whole TypeModel's public API.
type resolver interface {
	resolveMessage(t reflectx.Type) (*TypeDescriptor, error)
	resolveEnum(t reflectx.Type) *codec.EnumDomain
	resolveSurrogate(name string) (*surrogateBinding, error)
	resolveDerivedChild(runtime reflectx.Type, desc *TypeDescriptor) (*subtypeEntry, bool)
	options() Options
}

// buildTypeDescriptor reflects over t (a struct or pointer-to-struct type)
// and compiles its `protomodel`-tagged fields into a TypeDescriptor.
func buildTypeDescriptor(rv resolver, t reflectx.Type) (*TypeDescriptor, error) {
	st := t
	for st.Kind() == reflectx.Ptr {
		st = st.Elem()
	}
	if st.Kind() != reflectx.Struct {
		return nil, fmt.Errorf("%w: %s is not a struct or pointer to struct", errs.ConfigurationError, t)
	}

	td := &TypeDescriptor{GoType: t, byTag: map[int32]*FieldDescriptor{}}

	for i := 0; i < st.NumField(); i++ {
		sf := st.Field(i)
		if sf.PkgPath != "" {
			continue // unexported
		}
		raw, ok := sf.Tag.Lookup(structTagKey)
		if !ok {
			continue // not part of the wire model
		}
		ft, err := parseFieldTag(sf.Name, raw)
		if err != nil {
			return nil, err
		}
		if ft.skip {
			continue
		}

		fd, err := buildField(rv, sf, ft)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", st, sf.Name, err)
		}
		if _, dup := td.byTag[ft.tag]; dup {
			return nil, fmt.Errorf("%w: %s has duplicate tag %d", errs.ConfigurationError, st, ft.tag)
		}
		td.byTag[ft.tag] = fd
		td.Fields = append(td.Fields, fd)
	}

	sort.Slice(td.Fields, func(i, j int) bool { return td.Fields[i].Tag < td.Fields[j].Tag })
	return td, nil
}

func buildField(rv resolver, sf reflectx.StructField, ft fieldTag) (*FieldDescriptor, error) {
	fd := &FieldDescriptor{
		Tag:           ft.tag,
		Name:          sf.Name,
		Required:      ft.required,
		Grouped:       ft.grouped,
		GoType:        sf.Type,
		index:         append([]int(nil), sf.Index...),
		surrogateName: ft.surrogateName,
	}

	if fd.surrogateName != "" {
		binding, err := rv.resolveSurrogate(fd.surrogateName)
		if err != nil {
			return nil, err
		}
		fd.Kind = KindSurrogate
		fd.subType = binding.targetDesc
		fd.serializer = codec.Surrogate(messageSerializer(rv, binding.targetDesc, ft.grouped), binding.toSurrogate, binding.fromSurrogate)
		fd.Packed = false
		return fd, nil
	}

	t := sf.Type
	switch t.Kind() {
	case reflectx.Slice:
		if t.Elem().Kind() == reflectx.Uint8 && ft.kindHint == "bytes" {
			fd.Kind = KindBytes
			fd.serializer = codec.Bytes
			return fd, nil
		}
		return buildCollectionField(rv, fd, t.Elem(), ft, false)
	case reflectx.Array:
		return buildCollectionField(rv, fd, t.Elem(), ft, false)
	case reflectx.Map:
		return buildCollectionField(rv, fd, t.Elem(), ft, true)
	}

	k, err := scalarOrMessageKind(t, ft.kindHint)
	if err != nil {
		return nil, err
	}
	fd.Kind = k
	if err := fillLeafField(rv, fd, t, k); err != nil {
		return nil, err
	}
	if ft.packed != nil {
		return nil, fmt.Errorf("%w: packed/unpacked only applies to repeated fields", errs.ConfigurationError)
	}
	return fd, nil
}

func buildCollectionField(rv resolver, fd *FieldDescriptor, elemType reflectx.Type, ft fieldTag, isMap bool) (*FieldDescriptor, error) {
	if isMap {
		fd.Kind = KindMap
		keyType := fd.GoType.Key()
		keyKind, err := scalarOrMessageKind(keyType, mapKeyHint(keyType))
		if err != nil {
			return nil, fmt.Errorf("map key: %w", err)
		}
		fd.KeyKind = keyKind
		fd.KeyType = keyType
	} else {
		fd.Kind = KindList
	}

	fd.ElemType = elemType
	elemKind, err := scalarOrMessageKind(elemType, ft.kindHint)
	if err != nil {
		return nil, fmt.Errorf("element: %w", err)
	}
	fd.ElemKind = elemKind
	if err := fillElemField(rv, fd, elemType, elemKind); err != nil {
		return nil, err
	}

	fd.Packed = elemKind.scalar() && elemKind != KindString && elemKind != KindBytes
	if ft.packed != nil {
		if *ft.packed && !(elemKind.scalar() && elemKind != KindString && elemKind != KindBytes) {
			return nil, fmt.Errorf("%w: %s elements are not packable", errs.ConfigurationError, elemKind)
		}
		fd.Packed = *ft.packed
	}
	return fd, nil
}

// mapKeyHint derives the struct-tag kind token for a map key type directly
// from its Go kind; protobuf map keys are always an integral or string
// scalar, so no explicit hint is required in the tag.
func mapKeyHint(t reflectx.Type) string {
	switch t.Kind() {
	case reflectx.Bool:
		return "bool"
	case reflectx.Int32, reflectx.Int:
		return "int32"
	case reflectx.Uint32, reflectx.Uint:
		return "uint32"
	case reflectx.Int64:
		return "int64"
	case reflectx.Uint64:
		return "uint64"
	case reflectx.String:
		return "string"
	default:
		return ""
	}
}

// scalarOrMessageKind resolves the Kind for a leaf Go type given its
// struct-tag hint. A known hint is returned as given; it is not checked
// against t's Go kind.
func scalarOrMessageKind(t reflectx.Type, hint string) (Kind, error) {
	k, ok := kindHintNames[hint]
	if !ok {
		// No usable hint (e.g. empty, because this is a map key): infer
		// straight from the Go type for the handful of shapes that are
		// unambiguous.
		switch t.Kind() {
		case reflectx.Struct, reflectx.Ptr:
			return KindMessage, nil
		default:
			return KindInvalid, fmt.Errorf("%w: cannot infer wire kind for %s", errs.ConfigurationError, t)
		}
	}
	return k, nil
}

func fillLeafField(rv resolver, fd *FieldDescriptor, t reflectx.Type, k Kind) error {
	switch k {
	case KindMessage:
		desc, err := rv.resolveMessage(t)
		if err != nil {
			return err
		}
		fd.subType = desc
		fd.serializer = messageSerializer(rv, desc, fd.Grouped)
	case KindEnum:
		fd.enumDomain = rv.resolveEnum(t)
		fd.serializer = codec.Enum(*fd.enumDomain)
	default:
		s := scalarKindSerializer(k)
		if s == nil {
			return fmt.Errorf("%w: unsupported field kind %s", errs.ConfigurationError, k)
		}
		fd.serializer = s
	}
	return nil
}

func fillElemField(rv resolver, fd *FieldDescriptor, t reflectx.Type, k Kind) error {
	switch k {
	case KindMessage:
		desc, err := rv.resolveMessage(t)
		if err != nil {
			return err
		}
		fd.subType = desc
		fd.serializer = messageSerializer(rv, desc, fd.Grouped)
	case KindEnum:
		fd.enumDomain = rv.resolveEnum(t)
		fd.serializer = codec.Enum(*fd.enumDomain)
	default:
		s := scalarKindSerializer(k)
		if s == nil {
			return fmt.Errorf("%w: unsupported element kind %s", errs.ConfigurationError, k)
		}
		fd.serializer = s
	}
	return nil
}
