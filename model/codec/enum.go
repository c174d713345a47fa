package codec

import (
	"fmt"

	"github.com/go-protomodel/protomodel/model/errs"
	"github.com/go-protomodel/protomodel/protostate"
	"github.com/go-protomodel/protomodel/wire"
)

// EnumDomain maps a named enum type's declared values to and from their
// wire-level int32 representation. A nil ToName/ToValue pair (both maps
// empty) means the enum is pass-through: its underlying int32 is written
// and read verbatim, with no validation against a closed set.
type EnumDomain struct {
	ToValue map[string]int32
	ToName  map[int32]string
	Strict  bool // reject unknown values; when false, Read decodes an unknown value as 0 and Write passes it through
}

// Enum returns a Serializer for an enum field with the given domain. The
// serializer reads and writes the field's int32 ordinal; package model is
// responsible for converting that ordinal to and from the Go named type via
// reflection.
func Enum(domain EnumDomain) Serializer {
	return enumCodec{domain: domain}
}

type enumCodec struct {
	domain EnumDomain
}

func (enumCodec) Features() Features { return FeaturePackable }

func (c enumCodec) Read(r *protostate.Reader, _ interface{}) (interface{}, error) {
	v, err := r.ReadInt32Default()
	if err != nil {
		return nil, err
	}
	if len(c.domain.ToName) == 0 {
		return v, nil
	}
	if _, ok := c.domain.ToName[v]; !ok {
		if c.domain.Strict {
			return nil, fmt.Errorf("%w: %d", errs.UnknownEnumValue, v)
		}
		return int32(0), nil
	}
	return v, nil
}

func (c enumCodec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	v, ok := toInt32(val)
	if !ok {
		return fmt.Errorf("codec: Enum.Write got %T, want int32-compatible", val)
	}
	if len(c.domain.ToName) > 0 {
		if _, ok := c.domain.ToName[v]; !ok && c.domain.Strict {
			return fmt.Errorf("%w: %d", errs.UnknownEnumValue, v)
		}
	}
	w.WriteFieldHeader(tag, wire.Varint)
	w.WriteInt32Default(v)
	return nil
}
