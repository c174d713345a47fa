package wire

import (
	"errors"
	"fmt"
	"io"
)

// ErrOverflow is returned when a varint is too large to fit in 64 bits.
var ErrOverflow = errors.New("wire: varint overflow")

// ErrBadWireType is returned when a wire type byte outside the 0-5 range
// is encountered.
var ErrBadWireType = errors.New("wire: invalid wire type")

// maxVarintBytes is the most bytes a 64-bit varint can occupy; the reader
// treats an 11th continuation byte as malformed input.
const maxVarintBytes = 10

// Buffer is a cursor over a byte slice that knows how to decode and encode
// the five Protocol Buffers wire primitives. It is the leaf of the codec:
// it has no notion of fields, sub-items, or declared types — see
// package protostate for that layer.
type Buffer struct {
	buf   []byte
	index int

	// tmp is the reusable scratch storage handed out by Scratch and
	// retained by SaveScratch; no encode method of Buffer uses it itself.
	tmp []byte
}

// NewBuffer wraps buf for reading. The returned Buffer does not copy buf.
func NewBuffer(buf []byte) *Buffer {
	return &Buffer{buf: buf}
}

// Reset discards any buffered bytes and rewinds the read cursor to zero.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.index = 0
}

// Bytes returns the remaining unread (or, after writes, the written)
// portion of the buffer. The returned slice aliases the Buffer's storage.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.index:]
}

// Len returns the number of unread bytes remaining.
func (b *Buffer) Len() int {
	return len(b.buf) - b.index
}

// Pos returns the absolute read/write cursor position. Used by package
// protostate to bound reads inside nested length-delimited sub-items.
func (b *Buffer) Pos() int {
	return b.index
}

// EOF reports whether every byte in the buffer has been consumed.
func (b *Buffer) EOF() bool {
	return b.index >= len(b.buf)
}

// Skip advances the read cursor by count bytes without interpreting them.
func (b *Buffer) Skip(count int) error {
	if count < 0 {
		return fmt.Errorf("wire: negative skip count %d", count)
	}
	next := b.index + count
	if next < b.index || next > len(b.buf) {
		return io.ErrUnexpectedEOF
	}
	b.index = next
	return nil
}

// DecodeVarint reads a base-128 little-endian varint. It fails with
// ErrOverflow if an 11th continuation byte is seen.
func (b *Buffer) DecodeVarint() (uint64, error) {
	i := b.index
	buf := b.buf

	if i >= len(buf) {
		return 0, io.ErrUnexpectedEOF
	}
	if buf[i] < 0x80 {
		b.index = i + 1
		return uint64(buf[i]), nil
	}

	var x uint64
	for shift := uint(0); shift < 64; shift += 7 {
		if i >= len(buf) {
			return 0, io.ErrUnexpectedEOF
		}
		c := buf[i]
		i++
		x |= uint64(c&0x7f) << shift
		if c < 0x80 {
			b.index = i
			return x, nil
		}
	}
	return 0, ErrOverflow
}

// DecodeTag reads a varint field header and splits it into a field number
// and wire type.
func (b *Buffer) DecodeTag() (fieldNumber int32, wt Type, err error) {
	v, err := b.DecodeVarint()
	if err != nil {
		return 0, 0, err
	}
	fieldNumber, t := SplitTag(v)
	return fieldNumber, t, nil
}

// DecodeFixed32 reads a little-endian 32-bit value.
func (b *Buffer) DecodeFixed32() (uint32, error) {
	i := b.index + 4
	if i < b.index || i > len(b.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	x := uint32(b.buf[i-4]) | uint32(b.buf[i-3])<<8 | uint32(b.buf[i-2])<<16 | uint32(b.buf[i-1])<<24
	b.index = i
	return x, nil
}

// DecodeFixed64 reads a little-endian 64-bit value.
func (b *Buffer) DecodeFixed64() (uint64, error) {
	i := b.index + 8
	if i < b.index || i > len(b.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	x := uint64(b.buf[i-8]) | uint64(b.buf[i-7])<<8 | uint64(b.buf[i-6])<<16 | uint64(b.buf[i-5])<<24 |
		uint64(b.buf[i-4])<<32 | uint64(b.buf[i-3])<<40 | uint64(b.buf[i-2])<<48 | uint64(b.buf[i-1])<<56
	b.index = i
	return x, nil
}

// DecodeRawBytes reads a varint length prefix followed by that many bytes.
// If alloc is false the returned slice aliases the Buffer's storage;
// otherwise a fresh copy is made, which is the safe default for values the
// caller will keep past the lifetime of the read buffer.
func (b *Buffer) DecodeRawBytes(alloc bool) ([]byte, error) {
	n, err := b.DecodeVarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(b.buf)-b.index) {
		return nil, io.ErrUnexpectedEOF
	}
	end := b.index + int(n)
	var out []byte
	if alloc {
		out = make([]byte, n)
		copy(out, b.buf[b.index:end])
	} else {
		out = b.buf[b.index:end]
	}
	b.index = end
	return out, nil
}

// AppendBytes reads a length-delimited field and appends it to existing
// using the supplied allocator, supporting arena-backed reads. A nil
// allocator falls back to ordinary heap allocation via append.
func (b *Buffer) AppendBytes(existing []byte, alloc Allocator) ([]byte, error) {
	raw, err := b.DecodeRawBytes(false)
	if err != nil {
		return nil, err
	}
	if alloc == nil {
		return append(existing, raw...), nil
	}
	buf := alloc.Alloc(len(existing) + len(raw))
	buf = append(buf[:0], existing...)
	return append(buf, raw...), nil
}

// Allocator is a pluggable byte-buffer source, allowing callers to back
// reads with a custom arena instead of the heap. Queried by name from a
// protostate.Reader's user context; absent means "use the heap".
type Allocator interface {
	Alloc(size int) []byte
}

// SkipField consumes one field's payload according to its wire type,
// including a full scan for legacy groups.
func (b *Buffer) SkipField(wt Type) error {
	switch wt {
	case Varint:
		_, err := b.DecodeVarint()
		return err
	case Fixed32:
		return b.Skip(4)
	case Fixed64:
		return b.Skip(8)
	case LengthDelim:
		_, err := b.DecodeRawBytes(false)
		return err
	case StartGroup:
		return b.skipGroup()
	case EndGroup:
		return fmt.Errorf("wire: unexpected end-group marker")
	default:
		return ErrBadWireType
	}
}

func (b *Buffer) skipGroup() error {
	for {
		_, wt, err := b.DecodeTag()
		if err != nil {
			return err
		}
		if wt == EndGroup {
			return nil
		}
		if err := b.SkipField(wt); err != nil {
			return err
		}
	}
}

// Write implements io.Writer, appending data to the buffer unconditionally.
func (b *Buffer) Write(data []byte) (int, error) {
	b.buf = append(b.buf, data...)
	return len(data), nil
}

var _ io.Writer = (*Buffer)(nil)

// EncodeVarint appends x in base-128 little-endian form.
func (b *Buffer) EncodeVarint(x uint64) {
	for x >= 0x80 {
		b.buf = append(b.buf, byte(x)|0x80)
		x >>= 7
	}
	b.buf = append(b.buf, byte(x))
}

// EncodeTag appends a field header for fieldNumber/wt.
func (b *Buffer) EncodeTag(fieldNumber int32, wt Type) {
	b.EncodeVarint(Tag(fieldNumber, wt))
}

// EncodeFixed32 appends x as 4 little-endian bytes.
func (b *Buffer) EncodeFixed32(x uint32) {
	b.buf = append(b.buf, byte(x), byte(x>>8), byte(x>>16), byte(x>>24))
}

// EncodeFixed64 appends x as 8 little-endian bytes.
func (b *Buffer) EncodeFixed64(x uint64) {
	b.buf = append(b.buf,
		byte(x), byte(x>>8), byte(x>>16), byte(x>>24),
		byte(x>>32), byte(x>>40), byte(x>>48), byte(x>>56))
}

// EncodeRawBytes appends a varint length prefix followed by data.
func (b *Buffer) EncodeRawBytes(data []byte) {
	b.EncodeVarint(uint64(len(data)))
	b.buf = append(b.buf, data...)
}

// Scratch returns a zero-length slice backed by the Buffer's reusable
// scratch storage, growing it as needed. Used by callers that must
// measure a nested payload's length before emitting its prefix.
func (b *Buffer) Scratch() []byte {
	return b.tmp[:0]
}

// SaveScratch retains buf (if it grew) as the new scratch storage, so
// future Scratch() calls reuse the larger backing array.
func (b *Buffer) SaveScratch(buf []byte) {
	if cap(buf) > cap(b.tmp) {
		b.tmp = buf[:0]
	}
}
