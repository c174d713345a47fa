package protostate

import (
	"fmt"
	"io"

	"github.com/go-protomodel/protomodel/model/errs"
	"github.com/go-protomodel/protomodel/wire"
)

// SubItemPolicy selects how a Writer closes a length-delimited sub-item:
// by measuring its body exactly (Buffered) or by bracketing it with legacy
// group tags to avoid measurement altogether (Grouped).
type SubItemPolicy int

const (
	// Buffered stages the sub-item's body in a scratch buffer, measures
	// its exact length, then emits a varint length prefix followed by the
	// body. This is how ordinary embedded messages are written.
	Buffered SubItemPolicy = iota
	// Grouped emits a StartGroup tag, the body directly into the parent
	// buffer, then an EndGroup tag — no length measurement required.
	Grouped
)

type writerFrame struct {
	policy SubItemPolicy
	tag    int32
	parent *wire.Buffer
	child  *wire.Buffer
}

// Writer owns the output state for one serialization call: the byte sink,
// the current write cursor (which may be a nested scratch buffer while a
// Buffered sub-item is open), and the LIFO stack of open sub-items.
//
// A Writer is not safe for concurrent use. Every StartSubItem must be
// matched by exactly one EndSubItem before the writer is closed.
type Writer struct {
	sink   io.Writer
	root   *wire.Buffer
	cur    *wire.Buffer
	frames []*writerFrame
	ctx    *UserContext
}

// NewWriter returns a Writer that will flush its accumulated bytes to sink
// when Close is called.
func NewWriter(sink io.Writer) *Writer {
	root := &wire.Buffer{}
	return &Writer{sink: sink, root: root, cur: root, ctx: NewUserContext()}
}

// Context returns the writer's user-context bag.
func (w *Writer) Context() *UserContext { return w.ctx }

// WriteFieldHeader emits a field tag and wire type.
func (w *Writer) WriteFieldHeader(tag int32, wt wire.Type) {
	w.cur.EncodeTag(tag, wt)
}

// WriteVarint emits a raw varint value.
func (w *Writer) WriteVarint(v uint64) { w.cur.EncodeVarint(v) }

// WriteFixed32 emits a raw 32-bit value.
func (w *Writer) WriteFixed32(v uint32) { w.cur.EncodeFixed32(v) }

// WriteFixed64 emits a raw 64-bit value.
func (w *Writer) WriteFixed64(v uint64) { w.cur.EncodeFixed64(v) }

// WriteBool emits a bool as a varint 0 or 1.
func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteVarint(1)
	} else {
		w.WriteVarint(0)
	}
}

// WriteInt32Default emits a plain (non-zigzag) signed int32 as a varint;
// negative values sign-extend to 10 bytes.
func (w *Writer) WriteInt32Default(v int32) { w.WriteVarint(uint64(int64(v))) }

// WriteInt32ZigZag emits an sint32 value.
func (w *Writer) WriteInt32ZigZag(v int32) { w.WriteVarint(wire.ZigZag32(v)) }

// WriteUInt32 emits a uint32 as a varint.
func (w *Writer) WriteUInt32(v uint32) { w.WriteVarint(uint64(v)) }

// WriteInt64Default emits a plain signed int64 as a varint.
func (w *Writer) WriteInt64Default(v int64) { w.WriteVarint(uint64(v)) }

// WriteInt64ZigZag emits an sint64 value.
func (w *Writer) WriteInt64ZigZag(v int64) { w.WriteVarint(wire.ZigZag64(v)) }

// WriteUInt64 emits a uint64 as a varint.
func (w *Writer) WriteUInt64(v uint64) { w.WriteVarint(v) }

// WriteFixedInt32 emits an sfixed32 value.
func (w *Writer) WriteFixedInt32(v int32) { w.WriteFixed32(uint32(v)) }

// WriteFixedInt64 emits an sfixed64 value.
func (w *Writer) WriteFixedInt64(v int64) { w.WriteFixed64(uint64(v)) }

// WriteFloat emits a float value.
func (w *Writer) WriteFloat(v float32) { w.WriteFixed32(float32bits(v)) }

// WriteDouble emits a double value.
func (w *Writer) WriteDouble(v float64) { w.WriteFixed64(float64bits(v)) }

// WriteBytes emits a length-delimited bytes value.
func (w *Writer) WriteBytes(v []byte) { w.cur.EncodeRawBytes(v) }

// WriteString emits a length-delimited UTF-8 string value.
func (w *Writer) WriteString(v string) { w.cur.EncodeRawBytes([]byte(v)) }

// StartSubItem opens a length-delimited (or grouped) region for tag under
// the given policy. For Buffered, the caller must not emit a field header
// itself: the tag, its length prefix, and the body are all written
// together by EndSubItem once the body's length is known. For Grouped,
// StartSubItem writes the StartGroup tag immediately and EndSubItem writes
// the matching EndGroup tag.
func (w *Writer) StartSubItem(tag int32, policy SubItemPolicy) SubItemToken {
	frame := &writerFrame{policy: policy, tag: tag, parent: w.cur}
	if policy == Grouped {
		w.cur.EncodeTag(tag, wire.StartGroup)
	} else {
		frame.child = &wire.Buffer{}
		w.cur = frame.child
	}
	w.frames = append(w.frames, frame)
	return SubItemToken(len(w.frames) - 1)
}

// EndSubItem closes the region opened by a matching StartSubItem,
// back-patching the length prefix for a Buffered region or emitting the
// EndGroup tag for a Grouped one.
func (w *Writer) EndSubItem(token SubItemToken) error {
	if int(token) != len(w.frames)-1 {
		return fmt.Errorf("%w: sub-item tokens must be closed in LIFO order", errs.ConfigurationError)
	}
	frame := w.frames[len(w.frames)-1]
	w.frames = w.frames[:len(w.frames)-1]

	if frame.policy == Grouped {
		frame.parent.EncodeTag(frame.tag, wire.EndGroup)
		return nil
	}

	frame.parent.EncodeTag(frame.tag, wire.LengthDelim)
	frame.parent.EncodeRawBytes(frame.child.Bytes())
	w.cur = frame.parent
	return nil
}

// Close finalizes any sub-items left open (closing them in LIFO order,
// innermost first) and flushes the accumulated bytes to the sink.
func (w *Writer) Close() error {
	for len(w.frames) > 0 {
		if err := w.EndSubItem(SubItemToken(len(w.frames) - 1)); err != nil {
			return err
		}
	}
	_, err := w.sink.Write(w.root.Bytes())
	return err
}

// Abandon discards all buffered output without flushing anything to the
// sink.
func (w *Writer) Abandon() {
	w.frames = nil
	w.root = &wire.Buffer{}
	w.cur = w.root
}
