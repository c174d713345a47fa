package wire_test

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-protomodel/protomodel/wire"
)

func TestVarintBoundaries(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 16383, 16384, 1<<31 - 1, 1<<64 - 1}
	for _, v := range cases {
		b := &wire.Buffer{}
		b.EncodeVarint(v)
		rb := wire.NewBuffer(b.Bytes())
		got, err := rb.DecodeVarint()
		require.NoError(t, err)
		require.Equal(t, v, got)
		require.True(t, rb.EOF())
	}
}

func TestNegativeInt32VarintIsTenBytes(t *testing.T) {
	b := &wire.Buffer{}
	v := int32(-1)
	b.EncodeVarint(uint64(int64(v)))
	require.Len(t, b.Bytes(), 10)
}

func TestZigZagRoundTrip(t *testing.T) {
	for _, v := range []int32{0, -1, 1, -2, 2147483647, -2147483648} {
		got := wire.DecodeZigZag32(wire.ZigZag32(v))
		require.Equal(t, v, got)
	}
	for _, v := range []int64{0, -1, 1, 9223372036854775807, -9223372036854775808} {
		got := wire.DecodeZigZag64(wire.ZigZag64(v))
		require.Equal(t, v, got)
	}
}

func TestFieldHeaderRoundTrip(t *testing.T) {
	for tag := int32(1); tag < 20; tag++ {
		for wt := wire.Varint; wt <= wire.Fixed32; wt++ {
			b := &wire.Buffer{}
			b.EncodeTag(tag, wt)
			rb := wire.NewBuffer(b.Bytes())
			gotTag, gotWT, err := rb.DecodeTag()
			require.NoError(t, err)
			require.Equal(t, tag, gotTag)
			require.Equal(t, wt, gotWT)
		}
	}
}

func TestFixed32Fixed64RoundTrip(t *testing.T) {
	b := &wire.Buffer{}
	b.EncodeFixed32(0xdeadbeef)
	b.EncodeFixed64(0x0102030405060708)
	rb := wire.NewBuffer(b.Bytes())
	f32, err := rb.DecodeFixed32()
	require.NoError(t, err)
	require.Equal(t, uint32(0xdeadbeef), f32)
	f64, err := rb.DecodeFixed64()
	require.NoError(t, err)
	require.Equal(t, uint64(0x0102030405060708), f64)
}

func TestLengthDelimitedRoundTrip(t *testing.T) {
	b := &wire.Buffer{}
	b.EncodeRawBytes([]byte("hello"))
	rb := wire.NewBuffer(b.Bytes())
	got, err := rb.DecodeRawBytes(true)
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), got)
}

func TestTruncatedVarintIsUnexpectedEOF(t *testing.T) {
	rb := wire.NewBuffer([]byte{0x80, 0x80})
	_, err := rb.DecodeVarint()
	require.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestOverlongVarintOverflows(t *testing.T) {
	buf := make([]byte, 11)
	for i := range buf {
		buf[i] = 0x80
	}
	buf[10] = 0x01
	rb := wire.NewBuffer(buf)
	_, err := rb.DecodeVarint()
	require.ErrorIs(t, err, wire.ErrOverflow)
}

func TestSkipFieldGroup(t *testing.T) {
	b := &wire.Buffer{}
	// nested group: start, one varint field, nested start/end, end
	b.EncodeTag(1, wire.Varint)
	b.EncodeVarint(42)
	b.EncodeTag(2, wire.StartGroup)
	b.EncodeTag(2, wire.EndGroup)
	b.EncodeTag(3, wire.EndGroup)

	rb := wire.NewBuffer(b.Bytes())
	require.NoError(t, rb.SkipField(wire.StartGroup))
	require.True(t, rb.EOF())
}
