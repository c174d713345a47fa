// Package dispatch implements the concurrency-safe construction cache used
// to turn a runtime type token into a stable, published value exactly once
// even when many goroutines ask for it concurrently: the first caller
// builds it, every other caller in flight waits on that one build, and
// every caller afterward gets the cached result under a read lock without
// rebuilding.
package dispatch

import (
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Group dedupes concurrent construction of values keyed by an arbitrary
// comparable token (in package model, a reflectx.Type). It implements the
// NotSeen -> Constructing -> Ready lifecycle: a key absent from ready is
// NotSeen; a build in flight via sf is Constructing; a key present in ready
// is Ready and every subsequent Get returns it without taking sf's lock.
type Group struct {
	sf    singleflight.Group
	mu    sync.RWMutex
	ready map[interface{}]interface{}
}

// NewGroup returns an empty Group.
func NewGroup() *Group {
	return &Group{ready: map[interface{}]interface{}{}}
}

// Get returns the published value for key, if any.
func (g *Group) Get(key interface{}) (interface{}, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.ready[key]
	return v, ok
}

// GetOrBuild returns the published value for key, building it with build if
// this is the first request for key. Concurrent callers for the same key
// block on the single in-flight build rather than each running build
// themselves. A failed build is not published: the next call to
// GetOrBuild for the same key retries.
func (g *Group) GetOrBuild(key interface{}, build func() (interface{}, error)) (interface{}, error) {
	if v, ok := g.Get(key); ok {
		return v, nil
	}

	// singleflight.Group keys on string; the caller's key is arbitrary, so
	// it is mapped to a numeric string token through a side map keyed by
	// the key itself (see sfKeyFor), without stringifying key's content.
	sfKey := g.sfKeyFor(key)
	v, err, _ := g.sf.Do(sfKey, func() (interface{}, error) {
		if v, ok := g.Get(key); ok {
			return v, nil
		}
		v, err := build()
		if err != nil {
			return nil, err
		}
		g.mu.Lock()
		g.ready[key] = v
		g.mu.Unlock()
		return v, nil
	})
	return v, err
}

// sfKeys assigns a stable string token to each distinct key ever seen by
// any Group in the process, so singleflight.Group (which keys on string) can dedupe
// build calls for non-string keys like reflectx.Type values.
var (
	sfKeysMu sync.Mutex
	sfKeys   = map[interface{}]string{}
	sfNext   int
)

func (g *Group) sfKeyFor(key interface{}) string {
	sfKeysMu.Lock()
	defer sfKeysMu.Unlock()
	if s, ok := sfKeys[key]; ok {
		return s
	}
	sfNext++
	s := strconv.Itoa(sfNext)
	sfKeys[key] = s
	return s
}
