// Package iterate normalizes arbitrary Go values into lazy sequences for the
// template for loop.
//
// ToIterator tries a closed set of categories, first match wins:
//
//	nil                            empty
//	slice, array                   elements, or (index, element)
//	thunk                          the adapted result of calling it
//	sync iterable                  passed through, or (ordinal, element)
//	async iterable                 same, consumed under a context
//	record, map, struct            values, or (name, value)
//	string                         one element per character
//	number n                       1..n
//	anything else                  a single element
//
// Nothing is materialized for iterables; every Each call starts a fresh
// enumeration where the source allows it.
package iterate

import (
	"context"
	"iter"
	"math"
	"reflect"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/robfig/vento/data"
)

// Item is one iteration entry.  Key is only set when keys were requested.
type Item struct {
	Key   any
	Value any
}

// Iterator is a synchronous pull iterator.  Next returns false once the
// sequence is exhausted.
type Iterator interface {
	Next() (any, bool)
}

// Iterable produces a fresh Iterator per enumeration.
type Iterable interface {
	Iterator() Iterator
}

// AsyncIterator is a pull iterator whose steps may block.
type AsyncIterator interface {
	Next(ctx context.Context) (value any, ok bool, err error)
}

// AsyncIterable produces a fresh AsyncIterator per enumeration.
type AsyncIterable interface {
	AsyncIterator() AsyncIterator
}

// Sequence is a lazy, possibly asynchronous, sequence of items.
type Sequence struct {
	each  func(ctx context.Context, yield func(Item) bool) error
	async bool
}

// Async reports whether the source is asynchronous and must be consumed
// with an awaiting loop.
func (s Sequence) Async() bool {
	return s.async
}

// Each calls fn for every item until fn returns false, the source is
// exhausted or ctx is done.
func (s Sequence) Each(ctx context.Context, fn func(Item) bool) error {
	if s.each == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.each(ctx, fn)
}

// All returns the sequence as a range-over-func iterator.  A failure is
// reported as a final pair with a non-nil error.
func (s Sequence) All(ctx context.Context) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		var stopped = false
		var err = s.Each(ctx, func(item Item) bool {
			if !yield(item, nil) {
				stopped = true
				return false
			}
			return true
		})
		if err != nil && !stopped {
			yield(Item{}, err)
		}
	}
}

// Collect drains the sequence into a slice.
func Collect(ctx context.Context, s Sequence) ([]Item, error) {
	var items []Item
	var err = s.Each(ctx, func(item Item) bool {
		items = append(items, item)
		return true
	})
	return items, err
}

// Values drains the sequence and returns only the values.
func Values(ctx context.Context, s Sequence) ([]any, error) {
	var values []any
	var err = s.Each(ctx, func(item Item) bool {
		values = append(values, item.Value)
		return true
	})
	return values, err
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ToIterator adapts v into a sequence.  With withKeys, each item carries the
// index, ordinal or property name of its value.
func ToIterator(v any, withKeys bool) Sequence {
	// 1. null
	if data.IsNil(v) {
		return Sequence{}
	}

	switch v := v.(type) {
	case []any:
		return list(v, withKeys)
	case *data.Record:
		return record(v, withKeys)
	case Iterable:
		return pull(func() Iterator { return v.Iterator() }, withKeys)
	case Iterator:
		return pull(func() Iterator { return v }, withKeys)
	case AsyncIterable:
		return asyncPull(func() AsyncIterator { return v.AsyncIterator() }, withKeys)
	case AsyncIterator:
		return asyncPull(func() AsyncIterator { return v }, withKeys)
	case iter.Seq[any]:
		return seq(v, withKeys)
	case iter.Seq2[any, any]:
		return seq2(v, withKeys)
	case string:
		return text(v, withKeys)
	}

	var rv = reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return reflectList(rv, withKeys)
	case reflect.Func:
		if s, ok := reflectFunc(rv, withKeys); ok {
			return s
		}
	case reflect.Chan:
		if rv.Type().ChanDir()&reflect.RecvDir != 0 {
			return channel(rv, withKeys)
		}
	case reflect.Map:
		return reflectMap(rv, withKeys)
	case reflect.Struct:
		return reflectStruct(rv, withKeys)
	case reflect.Ptr:
		return ToIterator(rv.Elem().Interface(), withKeys)
	case reflect.String:
		return text(rv.String(), withKeys)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		var f, _ = data.ToNumber(v)
		return count(f, withKeys)
	}

	// 7. fallback
	return list([]any{v}, withKeys)
}

func entry(key, value any, withKeys bool) Item {
	if withKeys {
		return Item{Key: key, Value: value}
	}
	return Item{Value: value}
}

func list(items []any, withKeys bool) Sequence {
	return Sequence{each: func(_ context.Context, yield func(Item) bool) error {
		for i, item := range items {
			if !yield(entry(int64(i), item, withKeys)) {
				break
			}
		}
		return nil
	}}
}

func reflectList(rv reflect.Value, withKeys bool) Sequence {
	return Sequence{each: func(_ context.Context, yield func(Item) bool) error {
		for i := 0; i < rv.Len(); i++ {
			if !yield(entry(int64(i), rv.Index(i).Interface(), withKeys)) {
				break
			}
		}
		return nil
	}}
}

func record(r *data.Record, withKeys bool) Sequence {
	return Sequence{each: func(_ context.Context, yield func(Item) bool) error {
		for k, v := range r.All() {
			if !yield(entry(k, v, withKeys)) {
				break
			}
		}
		return nil
	}}
}

// reflectMap enumerates a map as a record with its keys as names, in key
// order.
func reflectMap(rv reflect.Value, withKeys bool) Sequence {
	return Sequence{each: func(_ context.Context, yield func(Item) bool) error {
		var keys = rv.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
		for _, k := range keys {
			if !yield(entry(data.ToString(k.Interface()), rv.MapIndex(k).Interface(), withKeys)) {
				break
			}
		}
		return nil
	}}
}

// lessKey orders numeric keys by value and everything else by name.
func lessKey(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() < b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return a.Uint() < b.Uint()
	case reflect.Float32, reflect.Float64:
		return a.Float() < b.Float()
	}
	return data.ToString(a.Interface()) < data.ToString(b.Interface())
}

func reflectStruct(rv reflect.Value, withKeys bool) Sequence {
	return Sequence{each: func(_ context.Context, yield func(Item) bool) error {
		var t = rv.Type()
		for i := 0; i < t.NumField(); i++ {
			var field = t.Field(i)
			if !field.IsExported() {
				continue
			}
			if !yield(entry(lowerCamel(field.Name), rv.Field(i).Interface(), withKeys)) {
				break
			}
		}
		return nil
	}}
}

func lowerCamel(name string) string {
	var first, size = utf8.DecodeRuneInString(name)
	return string(unicode.ToLower(first)) + name[size:]
}

func text(s string, withKeys bool) Sequence {
	return Sequence{each: func(_ context.Context, yield func(Item) bool) error {
		var i int64
		for _, r := range s {
			if !yield(entry(i, string(r), withKeys)) {
				break
			}
			i++
		}
		return nil
	}}
}

// count yields 1..n.  Fractions are truncated; negative and NaN counts are
// empty.
func count(n float64, withKeys bool) Sequence {
	if math.IsNaN(n) || n < 1 {
		return Sequence{}
	}
	var limit int64 = math.MaxInt64
	if n < math.MaxInt64 {
		limit = int64(n)
	}
	return Sequence{each: func(_ context.Context, yield func(Item) bool) error {
		for i := int64(1); ; i++ {
			if !yield(entry(i-1, i, withKeys)) || i == limit {
				break
			}
		}
		return nil
	}}
}

func seq(s iter.Seq[any], withKeys bool) Sequence {
	return Sequence{each: func(_ context.Context, yield func(Item) bool) error {
		var i int64
		for v := range s {
			if !yield(entry(i, v, withKeys)) {
				break
			}
			i++
		}
		return nil
	}}
}

func seq2(s iter.Seq2[any, any], withKeys bool) Sequence {
	return Sequence{each: func(_ context.Context, yield func(Item) bool) error {
		for k, v := range s {
			if !yield(entry(k, v, withKeys)) {
				break
			}
		}
		return nil
	}}
}

func pull(open func() Iterator, withKeys bool) Sequence {
	return Sequence{each: func(_ context.Context, yield func(Item) bool) error {
		var it = open()
		for i := int64(0); ; i++ {
			var v, ok = it.Next()
			if !ok || !yield(entry(i, v, withKeys)) {
				return nil
			}
		}
	}}
}

func asyncPull(open func() AsyncIterator, withKeys bool) Sequence {
	return Sequence{async: true, each: func(ctx context.Context, yield func(Item) bool) error {
		var it = open()
		for i := int64(0); ; i++ {
			var v, ok, err = it.Next(ctx)
			if err != nil {
				return err
			}
			if !ok || !yield(entry(i, v, withKeys)) {
				return nil
			}
		}
	}}
}

func channel(ch reflect.Value, withKeys bool) Sequence {
	return Sequence{async: true, each: func(ctx context.Context, yield func(Item) bool) error {
		var cases = []reflect.SelectCase{
			{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(ctx.Done())},
			{Dir: reflect.SelectRecv, Chan: ch},
		}
		for i := int64(0); ; i++ {
			var chosen, v, ok = reflect.Select(cases)
			if chosen == 0 {
				return ctx.Err()
			}
			if !ok || !yield(entry(i, v.Interface(), withKeys)) {
				return nil
			}
		}
	}}
}

// reflectFunc handles thunks and range-over-func iterators of any element
// type.  ok is false for other function shapes.
func reflectFunc(fn reflect.Value, withKeys bool) (Sequence, bool) {
	var t = fn.Type()
	switch {
	case t.NumIn() == 0 && t.NumOut() == 1:
		return thunk(func() (any, error) {
			return fn.Call(nil)[0].Interface(), nil
		}, withKeys), true

	case t.NumIn() == 0 && t.NumOut() == 2 && t.Out(1) == errorType:
		return thunk(func() (any, error) {
			var out = fn.Call(nil)
			if err, _ := out[1].Interface().(error); err != nil {
				return nil, err
			}
			return out[0].Interface(), nil
		}, withKeys), true

	case t.NumIn() == 1 && t.NumOut() == 0 && isYield(t.In(0)):
		return rangeFunc(fn, withKeys), true
	}
	return Sequence{}, false
}

// isYield reports whether t has the shape func(V) bool or func(K, V) bool.
func isYield(t reflect.Type) bool {
	return t.Kind() == reflect.Func &&
		(t.NumIn() == 1 || t.NumIn() == 2) &&
		t.NumOut() == 1 && t.Out(0).Kind() == reflect.Bool
}

// thunk adapts the result of calling fn.  A failing thunk gives a sequence
// whose enumeration returns the error.
func thunk(fn func() (any, error), withKeys bool) Sequence {
	var v, err = fn()
	if err != nil {
		return Sequence{each: func(context.Context, func(Item) bool) error { return err }}
	}
	return ToIterator(v, withKeys)
}

func rangeFunc(fn reflect.Value, withKeys bool) Sequence {
	var yieldType = fn.Type().In(0)
	return Sequence{each: func(_ context.Context, yield func(Item) bool) error {
		var i int64
		var body = reflect.MakeFunc(yieldType, func(args []reflect.Value) []reflect.Value {
			var item Item
			if len(args) == 2 {
				item = entry(args[0].Interface(), args[1].Interface(), withKeys)
			} else {
				item = entry(i, args[0].Interface(), withKeys)
			}
			i++
			return []reflect.Value{reflect.ValueOf(yield(item))}
		})
		fn.Call([]reflect.Value{body})
		return nil
	}}
}
