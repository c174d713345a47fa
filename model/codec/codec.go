// Package codec defines the Serializer contract used to move one field's
// value between Go-land and the wire, plus the built-in serializers for
// scalars, enums, nested messages, and surrogates. Repetition (lists and
// packed runs), map entries, and sub-type dispatch are driven by package
// model on top of these serializers. A Serializer never sees struct fields or reflection
// directly: package model resolves a Go value to and from interface{}
// (via reflection) and hands the boxed value to a Serializer for the wire
// conversion.
package codec

import (
	"github.com/go-protomodel/protomodel/protostate"
)

// Features describes optional behaviors a Serializer supports, queried by
// package model when deciding how to drive it (e.g. whether a repeated
// scalar field may use packed encoding).
type Features int

const (
	// FeaturePackable indicates the serializer's values may be packed into
	// a single length-delimited region when repeated.
	FeaturePackable Features = 1 << iota
)

// Serializer reads and writes a single field value's wire representation.
// Implementations never loop over repeated occurrences or open sub-items
// themselves for collection fields — package model's field-dispatch loop
// is responsible for repetition, packed-vs-unpacked framing, and map-entry
// sub-item bounding; a Serializer only ever handles exactly one scalar,
// message, or surrogate value per call.
type Serializer interface {
	// Features reports this serializer's optional capabilities.
	Features() Features

	// Read decodes one value. old is the previous value at this field (for
	// merge semantics on singular message fields); it is nil when there is
	// none. The field header for the value being read has already been
	// consumed; Read must not call protostate.Reader.ReadFieldHeader.
	Read(r *protostate.Reader, old interface{}) (interface{}, error)

	// Write encodes val under tag, emitting its own field header(s): every
	// built-in Serializer calls w.WriteFieldHeader itself, so package
	// model's field-dispatch loop never emits one on a Serializer's behalf.
	// A packed repeated run is the one case that bypasses Write entirely,
	// going through the writer's raw primitive methods instead, since a
	// packed element has no header of its own.
	Write(w *protostate.Writer, tag int32, val interface{}) error
}
