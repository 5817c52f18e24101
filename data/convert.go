package data

import (
	"fmt"
	"reflect"
	"sort"
	"time"
	"unicode"
	"unicode/utf8"
)

var timeType = reflect.TypeOf(time.Time{})

// Marshaler is implemented by types that convert themselves into template
// data.
type Marshaler interface {
	MarshalValue() any
}

// New converts the given Go value into template data, using
// DefaultStructOptions for structs.
func New(value any) any {
	return NewWith(DefaultStructOptions, value)
}

// RecordFrom converts the given map or struct into a data record.  A nil
// value gives an empty record; an existing *Record is returned as-is.
func RecordFrom(value any) (*Record, error) {
	switch v := New(value).(type) {
	case nil:
		return NewRecord(), nil
	case *Record:
		return v, nil
	}
	return nil, fmt.Errorf("invalid data type. expected map/struct, got %T", value)
}

// NewWith converts the given Go value into template data, using the provided
// StructOptions for any structs encountered.
//
// Maps with string keys and plain structs become records (maps in sorted key
// order, structs in field order).  Slices and arrays become []any.  Numbers
// become int64 or float64.  Functions, channels and values whose type has
// methods are kept as they are, so thunks and iterables stay lazy.
func NewWith(convert StructOptions, value any) any {
	switch value := value.(type) {
	case nil:
		return nil
	case *Record, string, bool, int64, float64:
		return value
	case Marshaler:
		return value.MarshalValue()
	}

	var v = reflect.ValueOf(value)
	if t := v.Type(); t != timeType && t != reflect.PointerTo(timeType) && t.NumMethod() > 0 {
		return value
	}

	// drill through pointers and interfaces to the underlying type
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if !v.IsValid() {
		return nil
	}

	if v.Type() == timeType {
		return v.Interface().(time.Time).Format(convert.TimeFormat)
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.Bool:
		return v.Bool()
	case reflect.String:
		return v.String()
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		var list = make([]any, v.Len())
		for i := range list {
			list[i] = NewWith(convert, v.Index(i).Interface())
		}
		return list
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return value
		}
		var keys = make([]string, 0, v.Len())
		for _, key := range v.MapKeys() {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		var r = NewRecord()
		for _, k := range keys {
			r.Set(k, NewWith(convert, v.MapIndex(reflect.ValueOf(k).Convert(v.Type().Key())).Interface()))
		}
		return r
	case reflect.Struct:
		return convert.Data(v.Interface())
	}
	return value
}

var DefaultStructOptions = StructOptions{
	LowerCamel: true,
	TimeFormat: time.RFC3339,
}

// StructOptions provides flexibility in conversion of structs to data
// records.
type StructOptions struct {
	LowerCamel bool   // if true, convert field names to lowerCamel.
	TimeFormat string // format string for time.Time. (if empty, use ISO-8601)
}

// Data converts the exported fields of the given struct into a record, in
// declaration order.
func (c StructOptions) Data(obj any) *Record {
	var r = NewRecord()
	var v = reflect.ValueOf(obj)
	var valType = v.Type()
	for i := 0; i < valType.NumField(); i++ {
		if !v.Field(i).CanInterface() {
			continue
		}
		var key = valType.Field(i).Name
		if c.LowerCamel {
			var firstRune, size = utf8.DecodeRuneInString(key)
			key = string(unicode.ToLower(firstRune)) + key[size:]
		}
		r.Set(key, NewWith(c, v.Field(i).Interface()))
	}
	return r
}
