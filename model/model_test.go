package model_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/go-protomodel/protomodel/model"
)

type Address struct {
	Street string `protomodel:"1,string"`
	Zip    int32  `protomodel:"2,int32"`
}

type Person struct {
	Name   string           `protomodel:"1,string"`
	Age    int32            `protomodel:"2,int32"`
	Tags   []string         `protomodel:"3,string"`
	Scores []int32          `protomodel:"4,int32"`
	Home   *Address         `protomodel:"5,message"`
	ByCity map[string]int32 `protomodel:"6,int32"`
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	tm := model.New()
	require.NoError(t, tm.Add(Person{}))

	in := Person{
		Name:   "Ada",
		Age:    36,
		Tags:   []string{"engineer", "mathematician"},
		Scores: []int32{1, 2, 3, 4},
		Home:   &Address{Street: "1 Analytical Engine Way", Zip: 94107},
		ByCity: map[string]int32{"sf": 1, "nyc": 2},
	}

	data, err := tm.Serialize(&in)
	require.NoError(t, err)

	out, err := tm.Deserialize(data, &Person{})
	require.NoError(t, err)

	got := out.(*Person)
	if diff := cmp.Diff(&in, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDeepClone(t *testing.T) {
	tm := model.New()
	require.NoError(t, tm.Add(Address{}))

	in := &Address{Street: "221B Baker St", Zip: 1}
	clone, err := tm.DeepClone(in)
	require.NoError(t, err)

	got := clone.(*Address)
	require.Equal(t, in, got)
	got.Zip = 2
	require.NotEqual(t, in.Zip, got.Zip)
}

type Status int32

type Order struct {
	ID     int32  `protomodel:"1,int32"`
	Status Status `protomodel:"2,enum"`
}

func TestEnumDomainRoundTrip(t *testing.T) {
	tm := model.New()
	require.NoError(t, tm.EnumDomain(Status(0),
		map[string]int32{"PENDING": 0, "SHIPPED": 1, "DELIVERED": 2},
		map[int32]string{0: "PENDING", 1: "SHIPPED", 2: "DELIVERED"}))
	require.NoError(t, tm.Add(Order{}))

	in := &Order{ID: 7, Status: 1}
	data, err := tm.Serialize(in)
	require.NoError(t, err)

	out, err := tm.Deserialize(data, &Order{})
	require.NoError(t, err)
	require.Equal(t, in, out.(*Order))
}

type UUIDHolder struct {
	ID UUID `protomodel:"1,message,surrogate=uuid"`
}

type UUID [16]byte

type uuidWire struct {
	Bytes []byte `protomodel:"1,bytes"`
}

func TestSurrogateRoundTrip(t *testing.T) {
	tm := model.New()
	require.NoError(t, tm.SetSurrogate("uuid", UUID{}, uuidWire{},
		func(v interface{}) (interface{}, error) {
			u := v.(UUID)
			return &uuidWire{Bytes: u[:]}, nil
		},
		func(v interface{}) (interface{}, error) {
			w := v.(*uuidWire)
			var u UUID
			copy(u[:], w.Bytes)
			return u, nil
		}))
	require.NoError(t, tm.Add(UUIDHolder{}))

	in := &UUIDHolder{ID: UUID{1, 2, 3, 4}}
	data, err := tm.Serialize(in)
	require.NoError(t, err)

	out, err := tm.Deserialize(data, &UUIDHolder{})
	require.NoError(t, err)
	require.Equal(t, in, out.(*UUIDHolder))
}

// ShapeBase is a base type extended by RectShape, in turn extended by
// SquareShape, each embedding its direct base as an anonymous first field
// and adding one field of its own at the next free tag.
type ShapeBase struct {
	AVal int32 `protomodel:"1,int32"`
}

type RectShape struct {
	ShapeBase
	BVal int32 `protomodel:"2,int32"`
}

type SquareShape struct {
	RectShape
	CVal int32 `protomodel:"3,int32"`
}

func TestSubTypeDispatch(t *testing.T) {
	tm := model.New()
	require.NoError(t, tm.AddSubType(ShapeBase{}, RectShape{}, 4))
	require.NoError(t, tm.AddSubType(RectShape{}, SquareShape{}, 5))

	in := &SquareShape{
		RectShape: RectShape{ShapeBase: ShapeBase{AVal: 123}, BVal: 456},
		CVal:      789,
	}
	data, err := tm.Serialize(in)
	require.NoError(t, err)
	require.Equal(t,
		[]byte{0x22, 0x08, 0x2A, 0x03, 0x18, 0x95, 0x06, 0x10, 0xC8, 0x03, 0x08, 0x7B},
		data)

	out, err := tm.Deserialize(data, &ShapeBase{})
	require.NoError(t, err)
	require.Equal(t, in, out.(*SquareShape))
}

func TestSubTypeDeserializesToBaseWhenNoDerivedTagPresent(t *testing.T) {
	tm := model.New()
	require.NoError(t, tm.AddSubType(ShapeBase{}, RectShape{}, 4))

	in := &ShapeBase{AVal: 5}
	data, err := tm.Serialize(in)
	require.NoError(t, err)

	out, err := tm.Deserialize(data, &ShapeBase{})
	require.NoError(t, err)
	require.Equal(t, in, out.(*ShapeBase))
}

func TestAutoCompileDeferredUntilExplicitCompile(t *testing.T) {
	tm := model.New(model.WithAutoCompile(false))
	require.NoError(t, tm.Add(Address{}))
	require.False(t, tm.CanSerialize(Address{}))

	require.NoError(t, tm.Compile(Address{}))
	require.True(t, tm.CanSerialize(Address{}))
}

func TestUnregisteredTypeFailsWithoutAutoAdd(t *testing.T) {
	tm := model.New(model.WithAutoAddMissingTypes(false))
	_, err := tm.Serialize(&Address{Street: "nowhere"})
	require.Error(t, err)
}

func TestRejectUnknownFields(t *testing.T) {
	producer := model.New()
	require.NoError(t, producer.Add(Person{}))
	data, err := producer.Serialize(&Person{Name: "x", Age: 9})
	require.NoError(t, err)

	type PersonV1 struct {
		Name string `protomodel:"1,string"`
	}
	strict := model.New(model.WithRejectUnknownFields(true))
	require.NoError(t, strict.Add(PersonV1{}))
	_, err = strict.Deserialize(data, &PersonV1{})
	require.Error(t, err)

	lenient := model.New()
	require.NoError(t, lenient.Add(PersonV1{}))
	out, err := lenient.Deserialize(data, &PersonV1{})
	require.NoError(t, err)
	require.Equal(t, "x", out.(*PersonV1).Name)
}
