// Package errs defines the sentinel error taxonomy shared by the wire
// reader/writer state, the type model, and the built-in serializers. All
// errors are terminal for the (de)serialization call in which they occur:
// callers must discard the reader/writer state that produced one.
package errs

import "errors"

var (
	// Malformed indicates corrupt input: a bad varint, invalid wire type,
	// invalid UTF-8 in a string field, or mismatched group start/end tags.
	Malformed = errors.New("protomodel: malformed input")

	// Truncated indicates EOF was reached in the middle of decoding a value.
	Truncated = errors.New("protomodel: truncated input")

	// Overrun indicates a sub-item's declared length exceeds the bytes
	// remaining in its enclosing region.
	Overrun = errors.New("protomodel: sub-item length overruns enclosing region")

	// UnconsumedBytes indicates a sub-item was closed with bytes still
	// remaining that its reader never consumed.
	UnconsumedBytes = errors.New("protomodel: unconsumed bytes in sub-item")

	// UnknownType indicates the declared type has no registered descriptor
	// and the model is not configured to auto-add it. It is also returned
	// when the model rejects unknown fields and a decoded field tag is not
	// part of the type's descriptor.
	UnknownType = errors.New("protomodel: unknown type")

	// UnknownEnumValue indicates a decoded enum value has no mapping and
	// strict-enum checking is enabled.
	UnknownEnumValue = errors.New("protomodel: unknown enum value")

	// DepthExceeded indicates the configured recursion guard tripped while
	// descending into nested messages or groups.
	DepthExceeded = errors.New("protomodel: nesting depth exceeded")

	// ConfigurationError indicates an inconsistent type model: a duplicate
	// tag, a conflicting surrogate, or a surrogate cycle.
	ConfigurationError = errors.New("protomodel: configuration error")
)
