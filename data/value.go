// Package data provides the per-render data record and the value semantics
// shared by the renderer: truthiness, equality, printing and arithmetic.
//
// Template values are plain Go values.  The shapes produced by expressions
// are nil, bool, int64, float64, string, []any and *Record; any other Go
// value supplied by the caller is accepted and handled through reflection.
package data

import (
	"fmt"
	"iter"
	"strings"
)

// Record is an insertion-ordered, string-keyed map.  It is the shape of the
// per-render data record, of the exports accumulator and of object literals.
//
// The zero value is an empty record ready to use.  A Record is not safe for
// concurrent mutation.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{}
}

// RecordOf builds a record from alternating keys and values, in order.
// It panics if a key is not a string or a value is missing.
func RecordOf(kv ...any) *Record {
	if len(kv)%2 != 0 {
		panic("data.RecordOf: odd number of arguments")
	}
	var r = NewRecord()
	for i := 0; i < len(kv); i += 2 {
		var k, ok = kv[i].(string)
		if !ok {
			panic(fmt.Errorf("data.RecordOf: key %v is not a string", kv[i]))
		}
		r.Set(k, kv[i+1])
	}
	return r
}

// Get retrieves the value under the named key, or nil if it doesn't exist.
func (r *Record) Get(k string) any {
	var v, _ = r.Lookup(k)
	return v
}

// Lookup retrieves the value under the named key and reports whether it
// exists.
func (r *Record) Lookup(k string) (any, bool) {
	if r == nil || r.values == nil {
		return nil, false
	}
	var v, ok = r.values[k]
	return v, ok
}

// Has reports whether the key is an own property of the record.
func (r *Record) Has(k string) bool {
	var _, ok = r.Lookup(k)
	return ok
}

// Set stores v under k.  New keys are appended; existing keys keep their
// position.
func (r *Record) Set(k string, v any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, ok := r.values[k]; !ok {
		r.keys = append(r.keys, k)
	}
	r.values[k] = v
}

// Delete removes k from the record.
func (r *Record) Delete(k string) {
	if _, ok := r.values[k]; !ok {
		return
	}
	delete(r.values, k)
	for i, key := range r.keys {
		if key == k {
			r.keys = append(r.keys[:i:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}
	return append([]string(nil), r.keys...)
}

// Len returns the number of keys.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// All returns an iterator over the (key, value) pairs in insertion order.
func (r *Record) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if r == nil {
			return
		}
		for _, k := range r.keys {
			if !yield(k, r.values[k]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy of the record.
func (r *Record) Clone() *Record {
	var c = NewRecord()
	if r == nil {
		return c
	}
	c.keys = append(c.keys, r.keys...)
	c.values = make(map[string]any, len(r.values))
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Merge sets every key of other on r, in other's order, and returns r.
func (r *Record) Merge(other *Record) *Record {
	for k, v := range other.All() {
		r.Set(k, v)
	}
	return r
}

func (r *Record) String() string {
	var items = make([]string, 0, r.Len())
	for k, v := range r.All() {
		items = append(items, k+": "+Inspect(v))
	}
	return "{" + strings.Join(items, ", ") + "}"
}
