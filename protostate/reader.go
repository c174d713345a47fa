package protostate

import (
	"fmt"
	"unicode/utf8"

	"github.com/go-protomodel/protomodel/model/errs"
	"github.com/go-protomodel/protomodel/wire"
)

// defaultMaxDepth bounds recursion into nested messages/groups absent an
// explicit caller-supplied limit, guarding against malicious or corrupt
// input that nests sub-items indefinitely.
const defaultMaxDepth = 64

// SubItemToken is an opaque LIFO handle returned by StartSubItem and
// consumed by EndSubItem.
type SubItemToken int

// subItemFrame bounds one open sub-item. A length-delimited sub-item knows
// its absolute end position up front; a legacy group does not — its end is
// only known once a matching EndGroup tag is actually decoded, so closed
// tracks whether that has happened yet.
type subItemFrame struct {
	group  bool
	tag    int32 // group frames only: the StartGroup tag to match on close
	end    int   // length-delimited frames only: absolute end position
	closed bool  // group frames only: true once the matching EndGroup is seen
}

// Reader owns the positional state for one deserialization call: the
// underlying byte cursor, the sub-item stack that bounds reads inside
// nested messages, an optional string-interning pool, and a small
// user-context bag for capabilities like a pluggable byte allocator.
//
// A Reader is not safe for concurrent use and must be discarded after any
// method returns an error — the state is then terminal, per the wire
// codec's failure semantics.
type Reader struct {
	buf      *wire.Buffer
	frames   []subItemFrame // open sub-items, LIFO
	maxDepth int

	tag int32
	wt  wire.Type

	intern *internPool
	ctx    *UserContext
}

// ReaderOption configures a Reader at construction time.
type ReaderOption func(*Reader)

// WithMaxDepth overrides the default recursion guard.
func WithMaxDepth(n int) ReaderOption {
	return func(r *Reader) { r.maxDepth = n }
}

// WithStringInterning enables the string-interning pool described in
// spec.md section 4.2.
func WithStringInterning() ReaderOption {
	return func(r *Reader) { r.intern = newInternPool() }
}

// WithUserContext attaches a pre-populated UserContext (e.g. carrying a
// custom byte allocator) to the reader.
func WithUserContext(ctx *UserContext) ReaderOption {
	return func(r *Reader) { r.ctx = ctx }
}

// NewReader wraps buf for decoding.
func NewReader(buf []byte, opts ...ReaderOption) *Reader {
	r := &Reader{
		buf:      wire.NewBuffer(buf),
		maxDepth: defaultMaxDepth,
		ctx:      NewUserContext(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Context returns the reader's user-context bag.
func (r *Reader) Context() *UserContext { return r.ctx }

// CurrentField returns the tag/wire-type most recently returned by
// ReadFieldHeader.
func (r *Reader) CurrentField() (int32, wire.Type) { return r.tag, r.wt }

// atBound reports whether the active sub-item (if any) has been fully
// consumed.
func (r *Reader) atBound() bool {
	if len(r.frames) == 0 {
		return false
	}
	top := r.frames[len(r.frames)-1]
	if top.group {
		return top.closed
	}
	return r.buf.Pos() >= top.end
}

func (r *Reader) checkWithinBound() error {
	if len(r.frames) == 0 {
		return nil
	}
	top := r.frames[len(r.frames)-1]
	if top.group {
		return nil
	}
	if r.buf.Pos() > top.end {
		return errs.Overrun
	}
	return nil
}

// ReadFieldHeader decodes the next field tag and wire type. It returns
// ok=false at the logical end of the current message: true EOF at the
// root, exhaustion of the active sub-item's declared length, or a matching
// EndGroup tag closing an open legacy group.
func (r *Reader) ReadFieldHeader() (tag int32, wt wire.Type, ok bool, err error) {
	if r.atBound() {
		return 0, 0, false, nil
	}
	if len(r.frames) == 0 && r.buf.EOF() {
		return 0, 0, false, nil
	}

	tag, wt, err = r.buf.DecodeTag()
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w: %v", errs.Truncated, err)
	}
	if tag == 0 {
		// Tag 0 is reserved to mean "no more fields"; well-formed encoders
		// never emit it, but a permissive reader treats it as end-of-message
		// rather than failing.
		return 0, 0, false, nil
	}
	if !wt.Valid() {
		return 0, 0, false, fmt.Errorf("%w: invalid wire type %d", errs.Malformed, wt)
	}

	if wt == wire.EndGroup {
		if len(r.frames) == 0 {
			return 0, 0, false, fmt.Errorf("%w: unexpected end-group tag %d", errs.Malformed, tag)
		}
		top := &r.frames[len(r.frames)-1]
		if !top.group || top.tag != tag {
			return 0, 0, false, fmt.Errorf("%w: mismatched end-group tag %d", errs.Malformed, tag)
		}
		top.closed = true
		return 0, 0, false, nil
	}

	if err := r.checkWithinBound(); err != nil {
		return 0, 0, false, err
	}
	r.tag, r.wt = tag, wt
	return tag, wt, true, nil
}

func (r *Reader) wrapErr(sentinel error, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", sentinel, err)
}

// ReadVarint reads a raw varint-encoded value, validating that the current
// field's wire type is Varint.
func (r *Reader) ReadVarint() (uint64, error) {
	if r.wt != wire.Varint {
		return 0, fmt.Errorf("%w: field %d has wire type %s, want varint", errs.Malformed, r.tag, r.wt)
	}
	v, err := r.buf.DecodeVarint()
	if err != nil {
		return 0, r.wrapErr(errs.Truncated, err)
	}
	return v, r.checkWithinBound()
}

// ReadFixed32 reads a raw 32-bit value, validating wire type Fixed32.
func (r *Reader) ReadFixed32() (uint32, error) {
	if r.wt != wire.Fixed32 {
		return 0, fmt.Errorf("%w: field %d has wire type %s, want fixed32", errs.Malformed, r.tag, r.wt)
	}
	v, err := r.buf.DecodeFixed32()
	if err != nil {
		return 0, r.wrapErr(errs.Truncated, err)
	}
	return v, r.checkWithinBound()
}

// ReadFixed64 reads a raw 64-bit value, validating wire type Fixed64.
func (r *Reader) ReadFixed64() (uint64, error) {
	if r.wt != wire.Fixed64 {
		return 0, fmt.Errorf("%w: field %d has wire type %s, want fixed64", errs.Malformed, r.tag, r.wt)
	}
	v, err := r.buf.DecodeFixed64()
	if err != nil {
		return 0, r.wrapErr(errs.Truncated, err)
	}
	return v, r.checkWithinBound()
}

// ReadBool decodes a varint field as a boolean (nonzero is true).
func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadVarint()
	return v != 0, err
}

// ReadInt32Default decodes a plain (non-zigzag) signed 32-bit varint field;
// negative values always occupy 10 bytes on the wire, matching protobuf's
// two's-complement sign-extension convention for int32.
func (r *Reader) ReadInt32Default() (int32, error) {
	v, err := r.ReadVarint()
	return int32(v), err
}

// ReadInt32ZigZag decodes an sint32 field.
func (r *Reader) ReadInt32ZigZag() (int32, error) {
	v, err := r.ReadVarint()
	if err != nil {
		return 0, err
	}
	return wire.DecodeZigZag32(v), nil
}

// ReadUInt32 decodes a uint32 varint field.
func (r *Reader) ReadUInt32() (uint32, error) {
	v, err := r.ReadVarint()
	return uint32(v), err
}

// ReadInt64Default decodes a plain int64 varint field.
func (r *Reader) ReadInt64Default() (int64, error) {
	v, err := r.ReadVarint()
	return int64(v), err
}

// ReadInt64ZigZag decodes an sint64 field.
func (r *Reader) ReadInt64ZigZag() (int64, error) {
	v, err := r.ReadVarint()
	if err != nil {
		return 0, err
	}
	return wire.DecodeZigZag64(v), nil
}

// ReadUInt64 decodes a uint64 varint field.
func (r *Reader) ReadUInt64() (uint64, error) {
	return r.ReadVarint()
}

// ReadFixedInt32 decodes an sfixed32 field, accepting legacy data upgraded
// from a plain varint (cross-wire-type numeric convertibility, per
// spec.md section 4.2).
func (r *Reader) ReadFixedInt32() (int32, error) {
	if r.wt == wire.Varint {
		v, err := r.ReadVarint()
		return int32(v), err
	}
	v, err := r.ReadFixed32()
	return int32(v), err
}

// ReadFixedInt64 decodes an sfixed64 field, with the same legacy upgrade
// tolerance as ReadFixedInt32.
func (r *Reader) ReadFixedInt64() (int64, error) {
	if r.wt == wire.Varint {
		v, err := r.ReadVarint()
		return int64(v), err
	}
	v, err := r.ReadFixed64()
	return int64(v), err
}

// ReadFloat decodes a float field.
func (r *Reader) ReadFloat() (float32, error) {
	v, err := r.ReadFixed32()
	if err != nil {
		return 0, err
	}
	return float32frombits(v), nil
}

// ReadDouble decodes a double field.
func (r *Reader) ReadDouble() (float64, error) {
	v, err := r.ReadFixed64()
	if err != nil {
		return 0, err
	}
	return float64frombits(v), nil
}

// ReadBytes decodes a length-delimited bytes field, optionally using the
// context's registered Allocator for the copy.
func (r *Reader) ReadBytes() ([]byte, error) {
	if r.wt != wire.LengthDelim {
		return nil, fmt.Errorf("%w: field %d has wire type %s, want length-delimited", errs.Malformed, r.tag, r.wt)
	}
	raw, err := r.buf.AppendBytes(nil, r.ctx.Allocator())
	if err != nil {
		return nil, r.wrapErr(errs.Truncated, err)
	}
	return raw, r.checkWithinBound()
}

// ReadString decodes a length-delimited UTF-8 string field, interning it if
// the reader was constructed with WithStringInterning.
func (r *Reader) ReadString() (string, error) {
	raw, err := r.rawStringBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: invalid UTF-8 in string field %d", errs.Malformed, r.tag)
	}
	s := string(raw)
	if r.intern != nil {
		s = r.intern.Intern(s)
	}
	return s, nil
}

func (r *Reader) rawStringBytes() ([]byte, error) {
	if r.wt != wire.LengthDelim {
		return nil, fmt.Errorf("%w: field %d has wire type %s, want length-delimited", errs.Malformed, r.tag, r.wt)
	}
	raw, err := r.buf.DecodeRawBytes(true)
	if err != nil {
		return nil, r.wrapErr(errs.Truncated, err)
	}
	return raw, r.checkWithinBound()
}

// SkipField consumes the current field's payload entirely, per its wire
// type, including a full scan for legacy groups.
func (r *Reader) SkipField() error {
	if r.wt == wire.StartGroup {
		err := r.buf.SkipField(r.wt)
		if err != nil {
			return r.wrapErr(errs.Malformed, err)
		}
		return r.checkWithinBound()
	}
	if err := r.buf.SkipField(r.wt); err != nil {
		return r.wrapErr(errs.Truncated, err)
	}
	return r.checkWithinBound()
}

// StartSubItem begins a bounded length-delimited region for the current
// field (which must have wire type LengthDelim) and returns a token that
// must be passed to a matching EndSubItem once the nested message has been
// fully read.
func (r *Reader) StartSubItem() (SubItemToken, error) {
	if r.wt != wire.LengthDelim {
		return 0, fmt.Errorf("%w: field %d has wire type %s, want length-delimited", errs.Malformed, r.tag, r.wt)
	}
	if len(r.frames)+1 > r.maxDepth {
		return 0, errs.DepthExceeded
	}
	n, err := r.buf.DecodeVarint()
	if err != nil {
		return 0, r.wrapErr(errs.Truncated, err)
	}
	end := r.buf.Pos() + int(n)
	if outer, ok := r.outerBound(); ok && end > outer {
		return 0, errs.Overrun
	}
	token := SubItemToken(len(r.frames))
	r.frames = append(r.frames, subItemFrame{end: end})
	return token, nil
}

// StartSubItemGroup begins a bounded region for the current field (which
// must have wire type StartGroup), closed by a matching EndGroup tag rather
// than a declared length. It returns a token for a matching EndSubItem.
func (r *Reader) StartSubItemGroup() (SubItemToken, error) {
	if r.wt != wire.StartGroup {
		return 0, fmt.Errorf("%w: field %d has wire type %s, want start-group", errs.Malformed, r.tag, r.wt)
	}
	if len(r.frames)+1 > r.maxDepth {
		return 0, errs.DepthExceeded
	}
	token := SubItemToken(len(r.frames))
	r.frames = append(r.frames, subItemFrame{group: true, tag: r.tag})
	return token, nil
}

// outerBound returns the absolute end position of the innermost
// length-delimited ancestor frame, skipping over any group frames (which
// have no absolute end of their own).
func (r *Reader) outerBound() (int, bool) {
	for i := len(r.frames) - 1; i >= 0; i-- {
		if !r.frames[i].group {
			return r.frames[i].end, true
		}
	}
	return 0, false
}

// EndSubItem closes the region opened by a matching StartSubItem or
// StartSubItemGroup. It fails with errs.UnconsumedBytes if a length-
// delimited sub-item's reader left bytes unread, or if a group's matching
// EndGroup tag was never reached.
func (r *Reader) EndSubItem(token SubItemToken) error {
	if int(token) != len(r.frames)-1 {
		return fmt.Errorf("%w: sub-item tokens must be closed in LIFO order", errs.ConfigurationError)
	}
	top := r.frames[len(r.frames)-1]
	if top.group {
		if !top.closed {
			return errs.UnconsumedBytes
		}
		r.frames = r.frames[:len(r.frames)-1]
		return nil
	}
	if r.buf.Pos() != top.end {
		if r.buf.Pos() < top.end {
			return errs.UnconsumedBytes
		}
		return errs.Overrun
	}
	r.frames = r.frames[:len(r.frames)-1]
	return nil
}

// Depth returns the current sub-item nesting depth.
func (r *Reader) Depth() int { return len(r.frames) }
