package data

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Truthy returns true according to the JavaScript definition of truthy and
// falsy values: nil, false, 0, NaN and "" are falsy, everything else is truthy.
func Truthy(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int64:
		return v != 0
	case float64:
		return v != 0 && !math.IsNaN(v)
	}
	if IsNil(v) {
		return false
	}
	if f, ok := ToNumber(v); ok && isNumeric(v) {
		return f != 0 && !math.IsNaN(f)
	}
	return true
}

// IsNil reports whether v is nil or a nil pointer, map, slice, func, channel
// or interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	var rv = reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// ToString formats this value for display in a template.  nil prints as the
// empty string.
func ToString(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return formatFloat(v)
	case *Record:
		return "[object Object]"
	case []any:
		var items = make([]string, len(v))
		for i, item := range v {
			items[i] = ToString(item)
		}
		return strings.Join(items, ",")
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	}

	if IsNil(v) {
		return ""
	}
	var rv = reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return formatFloat(rv.Float())
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	case reflect.Slice, reflect.Array:
		var items = make([]string, rv.Len())
		for i := range items {
			items[i] = ToString(rv.Index(i).Interface())
		}
		return strings.Join(items, ",")
	case reflect.Map, reflect.Struct:
		return "[object Object]"
	}
	return fmt.Sprint(v)
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	var abs = math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Inspect formats a value for error messages: strings are quoted.
func Inspect(v any) string {
	switch v := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case *Record:
		return v.String()
	case []any:
		var items = make([]string, len(v))
		for i, item := range v {
			items[i] = Inspect(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	}
	return ToString(v)
}

func isNumeric(v any) bool {
	switch reflect.Indirect(reflect.ValueOf(v)).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// AsInt returns v as an int64 if it is a Go integer, or a float with no
// fractional part.
func AsInt(v any) (int64, bool) {
	switch v := v.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			return int64(v), true
		}
		return 0, false
	case nil:
		return 0, false
	}
	var rv = reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return int64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return AsInt(rv.Float())
	}
	return 0, false
}

// isInt reports whether v is held as a Go integer type.
func isInt(v any) bool {
	switch reflect.Indirect(reflect.ValueOf(v)).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

// ToNumber converts v to a float64 the way JavaScript's Number() would, for
// the types where that is unambiguous.  ok is false for values that do not
// convert (records, lists, functions).
func ToNumber(v any) (f float64, ok bool) {
	switch v := v.(type) {
	case nil:
		return 0, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		var s = strings.TrimSpace(v)
		if s == "" {
			return 0, true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN(), true
		}
		return f, true
	}
	var rv = reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return 0, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.String:
		return ToNumber(rv.String())
	case reflect.Bool:
		return ToNumber(rv.Bool())
	}
	return math.NaN(), false
}

func isString(v any) bool {
	if _, ok := v.(string); ok {
		return true
	}
	return v != nil && reflect.Indirect(reflect.ValueOf(v)).Kind() == reflect.String
}

// Equal implements loose equality (==): numbers compare by value, a number
// and a numeric string or boolean are compared numerically, lists, records
// and other references compare by identity.
func Equal(a, b any) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}
	if isNumeric(a) || isNumeric(b) {
		var fa, oka = ToNumber(a)
		var fb, okb = ToNumber(b)
		if (isNumeric(a) || isString(a) || isBool(a)) && (isNumeric(b) || isString(b) || isBool(b)) {
			return oka && okb && fa == fb
		}
	}
	return StrictEqual(a, b)
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

// StrictEqual implements strict equality (===): no coercion between types,
// except that all Go numeric kinds are one number type.
func StrictEqual(a, b any) bool {
	if IsNil(a) || IsNil(b) {
		return IsNil(a) && IsNil(b)
	}
	if isNumeric(a) && isNumeric(b) {
		var fa, _ = ToNumber(a)
		var fb, _ = ToNumber(b)
		return fa == fb
	}
	if isString(a) && isString(b) {
		return ToString(a) == ToString(b)
	}
	var ra, rb = reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Slice, reflect.Map, reflect.Func, reflect.Ptr, reflect.Chan:
		return ra.Pointer() == rb.Pointer()
	}
	if ra.Type().Comparable() {
		return a == b
	}
	return false
}

// Add implements +: string concatenation if either side is a string,
// integer addition if both sides are integers, float addition otherwise.
func Add(a, b any) any {
	switch {
	case isString(a) || isString(b):
		return ToString(a) + ToString(b)
	case isInt(a) && isInt(b):
		var ia, _ = AsInt(a)
		var ib, _ = AsInt(b)
		return ia + ib
	}
	var fa, oka = ToNumber(a)
	var fb, okb = ToNumber(b)
	if !oka || !okb {
		return ToString(a) + ToString(b)
	}
	return fa + fb
}

// Arith implements the arithmetic operators other than +.  op is one of
// "-", "*", "/", "%".
func Arith(op string, a, b any) any {
	if isInt(a) && isInt(b) && op != "/" {
		var ia, _ = AsInt(a)
		var ib, _ = AsInt(b)
		switch op {
		case "-":
			return ia - ib
		case "*":
			return ia * ib
		case "%":
			if ib == 0 {
				return math.NaN()
			}
			return ia % ib
		}
	}
	var fa, _ = ToNumber(a)
	var fb, _ = ToNumber(b)
	switch op {
	case "-":
		return fa - fb
	case "*":
		return fa * fb
	case "/":
		return fa / fb
	case "%":
		return math.Mod(fa, fb)
	}
	panic(fmt.Errorf("unknown operator %q", op))
}

// Negate implements unary minus.
func Negate(v any) any {
	if isInt(v) {
		var i, _ = AsInt(v)
		return -i
	}
	var f, _ = ToNumber(v)
	return -f
}

// Compare orders a and b for the relational operators.  Two strings compare
// lexicographically; everything else compares numerically.  ok is false if
// the values are unordered (NaN involved).
func Compare(a, b any) (cmp int, ok bool) {
	if isString(a) && isString(b) {
		return strings.Compare(ToString(a), ToString(b)), true
	}
	var fa, _ = ToNumber(a)
	var fb, _ = ToNumber(b)
	switch {
	case math.IsNaN(fa) || math.IsNaN(fb):
		return 0, false
	case fa < fb:
		return -1, true
	case fa > fb:
		return 1, true
	}
	return 0, true
}

// Property returns obj[key] for records, Go maps with string keys, structs
// and pointers to them, and the length property of lists and strings.  Missing
// properties are nil.
func Property(obj any, key string) any {
	switch obj := obj.(type) {
	case nil:
		return nil
	case *Record:
		return obj.Get(key)
	case map[string]any:
		return obj[key]
	case string:
		if key == "length" {
			return int64(utf8.RuneCountInString(obj))
		}
		return nil
	case []any:
		if key == "length" {
			return int64(len(obj))
		}
		return nil
	}

	var rv = reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil
		}
		var v = rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !v.IsValid() {
			return nil
		}
		return v.Interface()
	case reflect.Struct:
		var f = structField(rv, key)
		if !f.IsValid() || !f.CanInterface() {
			return nil
		}
		return f.Interface()
	case reflect.Slice, reflect.Array, reflect.String:
		if key == "length" {
			if rv.Kind() == reflect.String {
				return int64(utf8.RuneCountInString(rv.String()))
			}
			return int64(rv.Len())
		}
	}
	return nil
}

// structField finds the field named key, or the exported field whose name
// is key with the first letter upper-cased.
func structField(rv reflect.Value, key string) reflect.Value {
	if f := rv.FieldByName(key); f.IsValid() {
		return f
	}
	var first, size = utf8.DecodeRuneInString(key)
	if first == utf8.RuneError {
		return reflect.Value{}
	}
	return rv.FieldByName(string(unicode.ToUpper(first)) + key[size:])
}

// Index returns obj[key] where key may be an integer (lists and strings) or
// anything else (converted to a property name).
func Index(obj any, key any) any {
	if i, ok := AsInt(key); ok && isNumeric(key) {
		switch o := obj.(type) {
		case []any:
			if i < 0 || i >= int64(len(o)) {
				return nil
			}
			return o[i]
		case string:
			var runes = []rune(o)
			if i < 0 || i >= int64(len(runes)) {
				return nil
			}
			return string(runes[i])
		}
		var rv = reflect.Indirect(reflect.ValueOf(obj))
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			if i < 0 || i >= int64(rv.Len()) {
				return nil
			}
			return rv.Index(int(i)).Interface()
		}
	}
	return Property(obj, ToString(key))
}
