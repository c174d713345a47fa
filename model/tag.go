package model

import (
	"fmt"
	"strconv"
	"strings"
)

// fieldTag is the parsed form of a `protomodel:"..."` struct tag, in the
// style `tag,kind[,opt,opt=val,...]`. Unlike the wire encoding a field uses,
// the kind token is a model.Kind spelled out by name (e.g. "sint32",
// "fixed64", "bytes"); it is a hint the builder uses to disambiguate Go
// types that map to more than one Kind (e.g. int32 as plain varint vs
// zigzag vs fixed).
type fieldTag struct {
	skip bool

	tag           int32
	kindHint      string
	packed        *bool // nil: use model default; non-nil: explicit override
	required      bool
	grouped       bool
	surrogateName string
}

const structTagKey = "protomodel"

// kindHintNames maps every leaf (non-collection) kind token a struct tag
// may name. A repeated or map field's tag still names its element's (or
// map value's) leaf kind — "list" and "map" are never themselves valid
// hints, since collection-ness is inferred from the Go field type.
var kindHintNames = map[string]Kind{
	"bool":    KindBool,
	"int32":   KindInt32,
	"sint32":  KindInt32ZigZag,
	"uint32":  KindUInt32,
	"fixed32": KindFixed32,
	"int64":   KindInt64,
	"sint64":  KindInt64ZigZag,
	"uint64":  KindUInt64,
	"fixed64": KindFixed64,
	"float":   KindFloat,
	"double":  KindDouble,
	"string":  KindString,
	"bytes":   KindBytes,
	"enum":    KindEnum,
	"message": KindMessage,
}

// parseFieldTag parses the raw struct tag string s (the value of the
// `protomodel` key) for field named name. An empty tag is not valid; fields
// lacking the tag entirely are skipped upstream before parseFieldTag is
// called. A tag of exactly "-" marks the field as explicitly excluded.
func parseFieldTag(name, s string) (fieldTag, error) {
	if s == "-" {
		return fieldTag{skip: true}, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return fieldTag{}, fmt.Errorf("protomodel: tag of field %q has too few parts: %q", name, s)
	}

	tagNum, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || tagNum <= 0 {
		return fieldTag{}, fmt.Errorf("protomodel: tag of field %q has invalid field number: %q", name, s)
	}

	ft := fieldTag{tag: int32(tagNum), kindHint: strings.TrimSpace(parts[1])}
	if _, ok := kindHintNames[ft.kindHint]; !ok {
		return fieldTag{}, fmt.Errorf("protomodel: tag of field %q has unknown kind %q", name, ft.kindHint)
	}

	for _, opt := range parts[2:] {
		opt = strings.TrimSpace(opt)
		switch {
		case opt == "packed":
			t := true
			ft.packed = &t
		case opt == "unpacked":
			f := false
			ft.packed = &f
		case opt == "required":
			ft.required = true
		case opt == "group":
			ft.grouped = true
		case strings.HasPrefix(opt, "surrogate="):
			ft.surrogateName = strings.TrimPrefix(opt, "surrogate=")
		case opt == "":
			// tolerate a trailing comma
		default:
			return fieldTag{}, fmt.Errorf("protomodel: tag of field %q has unknown option %q", name, opt)
		}
	}
	return ft, nil
}
