// Package model implements the runtime type model: a registry that
// compiles Go struct types into TypeDescriptors by reflection and struct
// tags, then drives serialization and deserialization through package
// protostate and the built-in package codec serializers, without any
// generated code.
package model

import (
	"fmt"
	"sync"

	"github.com/op/go-logging"

	"github.com/go-protomodel/protomodel/model/codec"
	"github.com/go-protomodel/protomodel/model/dispatch"
	"github.com/go-protomodel/protomodel/model/errs"
	"github.com/go-protomodel/protomodel/model/reflectx"
	"github.com/go-protomodel/protomodel/protostate"
)

// surrogateBinding is a registered T<->S conversion pair: targetDesc is S's
// compiled TypeDescriptor, and toSurrogate/fromSurrogate perform the total
// conversion in each direction.
type surrogateBinding struct {
	targetDesc    *TypeDescriptor
	toSurrogate   func(t interface{}) (interface{}, error)
	fromSurrogate func(s interface{}) (interface{}, error)
}

// TypeModel is a registry of compiled TypeDescriptors plus the
// serialization entry points (Serialize, Deserialize, DeepClone) that drive
// them. A TypeModel is safe for concurrent use: type compilation is
// guarded by an internal write lock (see addTypeLocked),
// and the first-use auto-add path for a never-before-seen root type is
// deduplicated across concurrent callers via package dispatch's
// singleflight-backed Group.
type TypeModel struct {
	opts Options

	mu         sync.RWMutex
	types      map[reflectx.Type]*TypeDescriptor
	enums      map[reflectx.Type]*codec.EnumDomain
	surrogates map[string]*surrogateBinding

	// derivedBase maps a derived Go type (registered as the second argument
	// to AddSubType) to the direct base type it was registered under.
	// Climbing this chain from a concrete runtime type finds the ultimate
	// ancestor TypeDescriptor Serialize must resolve against, so that a
	// base-declared root value carrying a more-derived dynamic type is
	// written as that derived type.
	derivedBase map[reflectx.Type]reflectx.Type

	ensure *dispatch.Group // dedupes concurrent first-Serialize auto-add per root type

	logger *logging.Logger
}

// New returns a TypeModel configured by opts.
func New(opts ...Option) *TypeModel {
	o := NewOptions(opts...)
	return &TypeModel{
		opts:        o,
		types:       map[reflectx.Type]*TypeDescriptor{},
		enums:       map[reflectx.Type]*codec.EnumDomain{},
		surrogates:  map[string]*surrogateBinding{},
		derivedBase: map[reflectx.Type]reflectx.Type{},
		ensure:      dispatch.NewGroup(),
	}
}

// SetLogger attaches a logger that receives a debug-level message each time
// a type is compiled. Logging is opt-in and nil by default.
func (tm *TypeModel) SetLogger(l *logging.Logger) { tm.logger = l }

func (tm *TypeModel) logf(format string, args ...interface{}) {
	if tm.logger != nil {
		tm.logger.Debugf(format, args...)
	}
}

// Add registers example's Go type with the model by compiling its
// TypeDescriptor immediately. When Options.AutoCompile is false, Add returns
// nil without recording anything; the type is then built by Compile or by
// auto-add on first use. example may be a struct value or a pointer to one.
func (tm *TypeModel) Add(example interface{}) error {
	if !tm.opts.AutoCompile {
		return nil
	}
	t := elemType(reflectx.TypeOf(example))
	tm.mu.Lock()
	defer tm.mu.Unlock()
	_, err := tm.addTypeLocked(t)
	return err
}

// AddSubType links derived under base as a sub-type at tag: base must be
// the first (index 0), anonymous field of derived's struct — the only way
// Go lets one concrete struct layer "is-a" another — and both may be
// passed as values or pointers (e.g. ShapeBase{} and RectShape{}).
//
// When a value whose dynamic type is derived (or anything registered
// further below it) is passed to Serialize as the root value, the root is
// resolved to base and its derived-only fields are written first, as a length-delimited
// sub-message at tag, followed by base's own fields at the outer level;
// Deserialize reverses this, allocating the most-derived type the wire
// data names and merging base's fields into its embedded slot. A chain of
// AddSubType calls composes to arbitrary depth.
func (tm *TypeModel) AddSubType(base, derived interface{}, tag int32) error {
	bt := elemType(reflectx.TypeOf(base))
	dt := elemType(reflectx.TypeOf(derived))
	if dt.Kind() != reflectx.Struct {
		return fmt.Errorf("%w: AddSubType's derived argument must be a struct, got %s", errs.ConfigurationError, dt)
	}
	if dt.NumField() == 0 || !dt.Field(0).Anonymous || dt.Field(0).Type != bt {
		return fmt.Errorf("%w: %s must embed %s as its first anonymous field to be registered as a sub-type of it", errs.ConfigurationError, dt, bt)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	baseDesc, err := tm.addTypeLocked(bt)
	if err != nil {
		return err
	}
	derivedDesc, err := tm.addTypeLocked(dt)
	if err != nil {
		return err
	}
	if _, dup := baseDesc.byTag[tag]; dup {
		return fmt.Errorf("%w: %s's sub-type tag %d collides with an ordinary field", errs.ConfigurationError, bt, tag)
	}
	if baseDesc.subtypes == nil {
		baseDesc.subtypes = map[int32]*subtypeEntry{}
		baseDesc.subtypesByType = map[reflectx.Type]*subtypeEntry{}
	}
	if _, dup := baseDesc.subtypes[tag]; dup {
		return fmt.Errorf("%w: %s already has a sub-type registered at tag %d", errs.ConfigurationError, bt, tag)
	}
	entry := &subtypeEntry{tag: tag, desc: derivedDesc}
	baseDesc.subtypes[tag] = entry
	baseDesc.subtypesByType[dt] = entry
	tm.derivedBase[dt] = bt
	return nil
}

// SetSurrogate registers a total conversion pair between t and its
// surrogate s: any field tagged `surrogate=name` whose Go type is t will be
// written and read as s's wire representation. name is the identifier used
// in the struct tag.
func (tm *TypeModel) SetSurrogate(name string, example, surrogateExample interface{}, toSurrogate func(t interface{}) (interface{}, error), fromSurrogate func(s interface{}) (interface{}, error)) error {
	st := elemType(reflectx.TypeOf(surrogateExample))

	tm.mu.Lock()
	defer tm.mu.Unlock()

	desc, err := tm.addTypeLocked(st)
	if err != nil {
		return err
	}
	if _, dup := tm.surrogates[name]; dup {
		return fmt.Errorf("%w: surrogate %q already registered", errs.ConfigurationError, name)
	}
	tm.surrogates[name] = &surrogateBinding{targetDesc: desc, toSurrogate: toSurrogate, fromSurrogate: fromSurrogate}
	_ = example
	return nil
}

// EnumPassthru registers example's enum type (an int32-kind named type) as
// pass-through: its wire value is written and read verbatim, with no
// mapping table and no strict-mode rejection of unrecognized values.
func (tm *TypeModel) EnumPassthru(example interface{}) error {
	t := elemType(reflectx.TypeOf(example))
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.enums[t] = &codec.EnumDomain{}
	return nil
}

// EnumDomain registers example's enum type with an explicit closed set of
// named values, enforced in strict mode (see Options.StrictEnums).
func (tm *TypeModel) EnumDomain(example interface{}, toValue map[string]int32, toName map[int32]string) error {
	t := elemType(reflectx.TypeOf(example))
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.enums[t] = &codec.EnumDomain{ToValue: toValue, ToName: toName, Strict: tm.opts.StrictEnums}
	return nil
}

// Compile unconditionally builds example's TypeDescriptor now, regardless
// of Options.AutoCompile: the entry point for callers who registered a type
// with AutoCompile disabled and want to force the build at a time of their
// choosing, rather than leaving it to the first Serialize/Deserialize call
// that references it.
func (tm *TypeModel) Compile(example interface{}) error {
	t := elemType(reflectx.TypeOf(example))
	tm.mu.Lock()
	defer tm.mu.Unlock()
	_, err := tm.addTypeLocked(t)
	return err
}

// CanSerialize reports whether example's type has a compiled
// TypeDescriptor already, without triggering auto-add.
func (tm *TypeModel) CanSerialize(example interface{}) bool {
	t := elemType(reflectx.TypeOf(example))
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	_, ok := tm.types[t]
	return ok
}

func elemType(t reflectx.Type) reflectx.Type {
	for t.Kind() == reflectx.Ptr {
		t = t.Elem()
	}
	return t
}

// addTypeLocked unconditionally compiles t's TypeDescriptor (or returns the
// existing one), regardless of Options.AutoAddMissingTypes: it backs the
// explicit Add/AddSubType/SetSurrogate entry points, where the caller is
// always allowed to register the type they named. The caller must already
// hold tm.mu for writing; recursive calls during construction reuse this
// same lock (sync.RWMutex is not reentrant, so addTypeLocked never locks
// itself — only the public entry points and ensureCompiled do).
func (tm *TypeModel) addTypeLocked(t reflectx.Type) (*TypeDescriptor, error) {
	t = elemType(t)
	if d, ok := tm.types[t]; ok {
		return d, nil
	}
	// Publish a stub immediately so a self-referential or mutually
	// recursive type resolves to the same pointer instead of recursing
	// forever.
	stub := &TypeDescriptor{GoType: t, byTag: map[int32]*FieldDescriptor{}}
	tm.types[t] = stub
	tm.logf("compiling type %s", t)

	built, err := buildTypeDescriptor(tm, t)
	if err != nil {
		delete(tm.types, t)
		return nil, err
	}
	stub.Fields = built.Fields
	stub.byTag = built.byTag
	return stub, nil
}

// ensureCompiled is the auto-add entry point used by Serialize/Deserialize/
// DeepClone the first time they see a root type. Concurrent first calls
// for the same never-before-seen type are deduplicated via tm.ensure so
// only one of them performs the compile.
func (tm *TypeModel) ensureCompiled(t reflectx.Type) (*TypeDescriptor, error) {
	t = elemType(t)
	tm.mu.RLock()
	d, ok := tm.types[t]
	tm.mu.RUnlock()
	if ok {
		return d, nil
	}
	if !tm.opts.AutoAddMissingTypes {
		return nil, fmt.Errorf("%w: %s", errs.UnknownType, t)
	}
	v, err := tm.ensure.GetOrBuild(t, func() (interface{}, error) {
		tm.mu.Lock()
		defer tm.mu.Unlock()
		return tm.addTypeLocked(t)
	})
	if err != nil {
		return nil, err
	}
	return v.(*TypeDescriptor), nil
}

// resolver interface implementation.

// resolveMessage implements resolver.resolveMessage: it is used only while
// recursively building a TypeDescriptor for a nested message-shaped field,
// where Options.AutoAddMissingTypes governs whether an unregistered type is
// an error or is compiled on the spot.
func (tm *TypeModel) resolveMessage(t reflectx.Type) (*TypeDescriptor, error) {
	t = elemType(t)
	if d, ok := tm.types[t]; ok {
		return d, nil
	}
	if !tm.opts.AutoAddMissingTypes {
		return nil, fmt.Errorf("%w: %s referenced as a nested field but never registered via Add", errs.UnknownType, t)
	}
	return tm.addTypeLocked(t)
}

func (tm *TypeModel) resolveEnum(t reflectx.Type) *codec.EnumDomain {
	if d, ok := tm.enums[t]; ok {
		return d
	}
	// An enum type referenced but never explicitly registered behaves as
	// pass-through, matching proto3's open-enum semantics.
	d := &codec.EnumDomain{}
	tm.enums[t] = d
	return d
}

func (tm *TypeModel) resolveSurrogate(name string) (*surrogateBinding, error) {
	b, ok := tm.surrogates[name]
	if !ok {
		return nil, fmt.Errorf("%w: surrogate %q is not registered", errs.ConfigurationError, name)
	}
	return b, nil
}

// resolveDerivedChild climbs from runtime (a value's concrete Go type)
// through tm.derivedBase until it finds the type whose direct base is
// desc.GoType, then looks that type up in desc's own sub-type table. This
// lets a value several inheritance levels below desc dispatch correctly:
// each level of writeMessageFields/readMessageFields only ever needs its
// immediate child.
func (tm *TypeModel) resolveDerivedChild(runtime reflectx.Type, desc *TypeDescriptor) (*subtypeEntry, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	for t := runtime; ; {
		base, ok := tm.derivedBase[t]
		if !ok {
			return nil, false
		}
		if base == desc.GoType {
			entry, ok := desc.subtypesByType[t]
			return entry, ok
		}
		t = base
	}
}

// rootType climbs tm.derivedBase from t to its ultimate registered
// ancestor — the type with no further base. Only Serialize uses this:
// the interface{} value it receives is the one place a caller's value can
// carry a dynamic type more derived than its static declared type, so only
// there does resolving "the root descriptor" mean resolving the topmost
// base rather than t itself.
func (tm *TypeModel) rootType(t reflectx.Type) reflectx.Type {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	for {
		base, ok := tm.derivedBase[t]
		if !ok {
			return t
		}
		t = base
	}
}

func (tm *TypeModel) options() Options { return tm.opts }

// Serialize encodes v (a struct value or pointer to one, previously
// registered via Add or eligible for auto-add) to its wire representation.
// If v's concrete type was registered as a sub-type (directly or several
// levels deep) of some ancestor via AddSubType, the ancestor's descriptor is
// resolved and the derived fields are written as a nested sub-message ahead
// of the ancestor's own fields.
func (tm *TypeModel) Serialize(v interface{}) ([]byte, error) {
	t := elemType(reflectx.TypeOf(v))
	root := tm.rootType(t)
	desc, err := tm.ensureCompiled(root)
	if err != nil {
		return nil, err
	}
	var buf sizeWriter
	w := protostate.NewWriter(&buf)
	if err := writeMessageFields(tm, w, desc, v); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Deserialize decodes data against example's declared Go type. If the wire
// data names a sub-type registered under that type via AddSubType, the
// returned value's concrete type is the most-derived type the data
// resolves to, with example's declared type's own fields merged into its
// embedded slot.
func (tm *TypeModel) Deserialize(data []byte, example interface{}) (interface{}, error) {
	t := elemType(reflectx.TypeOf(example))
	desc, err := tm.ensureCompiled(t)
	if err != nil {
		return nil, err
	}
	var opts []protostate.ReaderOption
	if tm.opts.MaxDepth > 0 {
		opts = append(opts, protostate.WithMaxDepth(tm.opts.MaxDepth))
	}
	if tm.opts.InternStrings {
		opts = append(opts, protostate.WithStringInterning())
	}
	r := protostate.NewReader(data, opts...)
	return readMessageFields(tm, r, desc, nil)
}

// DeepClone produces a distinct deep copy of v by serializing and
// deserializing it. When v's type was registered as a sub-type of some
// ancestor, the clone is decoded relative to that ancestor (as Serialize
// wrote it), not v's own possibly-derived type, so the data's sub-type
// tags resolve back to the original concrete type rather than being read
// as unknown fields.
func (tm *TypeModel) DeepClone(v interface{}) (interface{}, error) {
	data, err := tm.Serialize(v)
	if err != nil {
		return nil, err
	}
	root := tm.rootType(elemType(reflectx.TypeOf(v)))
	example := reflectx.New(root).Interface()
	return tm.Deserialize(data, example)
}

// sizeWriter is an io.Writer that simply accumulates bytes; protostate.Writer
// writes to it exactly once, from Close, with the whole encoded message.
type sizeWriter struct {
	buf []byte
}

func (s *sizeWriter) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	return len(p), nil
}

func (s *sizeWriter) Bytes() []byte { return s.buf }
