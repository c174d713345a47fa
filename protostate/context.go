package protostate

import "github.com/go-protomodel/protomodel/wire"

// allocatorKey is the well-known UserContext name under which a
// wire.Allocator can be registered, queried by Reader.ReadBytes to support
// arena-backed reads.
const allocatorKey = "protomodel.allocator"

// UserContext is a small named-value bag carried on a Reader or Writer for
// the lifetime of one (de)serialization call. It exists so capabilities
// like a custom byte allocator can be threaded through without widening
// every serializer's signature.
type UserContext struct {
	values map[string]interface{}
}

// NewUserContext returns an empty context.
func NewUserContext() *UserContext {
	return &UserContext{}
}

// Set stores a value under name, overwriting any previous value.
func (c *UserContext) Set(name string, v interface{}) {
	if c.values == nil {
		c.values = map[string]interface{}{}
	}
	c.values[name] = v
}

// Get looks up a previously stored value by name.
func (c *UserContext) Get(name string) (interface{}, bool) {
	if c.values == nil {
		return nil, false
	}
	v, ok := c.values[name]
	return v, ok
}

// SetAllocator registers an Allocator for pluggable byte-buffer reads.
func (c *UserContext) SetAllocator(a wire.Allocator) {
	c.Set(allocatorKey, a)
}

// Allocator returns the registered Allocator, or nil if reads should fall
// back to the heap.
func (c *UserContext) Allocator() wire.Allocator {
	v, ok := c.Get(allocatorKey)
	if !ok {
		return nil
	}
	a, _ := v.(wire.Allocator)
	return a
}
