package codec

import (
	"fmt"

	"github.com/go-protomodel/protomodel/protostate"
)

// Surrogate wraps an inner Serializer (typically a message serializer for
// the surrogate type S) with a total conversion pair T<->S, so that a field
// declared as T is written and read through S's wire representation without
// package model's field-dispatch loop needing to know a conversion is
// happening.
func Surrogate(inner Serializer, toSurrogate func(t interface{}) (interface{}, error), fromSurrogate func(s interface{}) (interface{}, error)) Serializer {
	return surrogateCodec{inner: inner, to: toSurrogate, from: fromSurrogate}
}

type surrogateCodec struct {
	inner Serializer
	to    func(t interface{}) (interface{}, error)
	from  func(s interface{}) (interface{}, error)
}

func (c surrogateCodec) Features() Features { return 0 }

func (c surrogateCodec) Read(r *protostate.Reader, old interface{}) (interface{}, error) {
	var oldSurrogate interface{}
	if old != nil {
		s, err := c.to(old)
		if err != nil {
			return nil, fmt.Errorf("codec: surrogate conversion of previous value failed: %w", err)
		}
		oldSurrogate = s
	}
	s, err := c.inner.Read(r, oldSurrogate)
	if err != nil {
		return nil, err
	}
	t, err := c.from(s)
	if err != nil {
		return nil, fmt.Errorf("codec: surrogate conversion back to original type failed: %w", err)
	}
	return t, nil
}

func (c surrogateCodec) Write(w *protostate.Writer, tag int32, val interface{}) error {
	s, err := c.to(val)
	if err != nil {
		return fmt.Errorf("codec: surrogate conversion failed: %w", err)
	}
	return c.inner.Write(w, tag, s)
}
