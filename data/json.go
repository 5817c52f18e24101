package data

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ParseJSON decodes a single JSON value from r.  Objects become records that
// keep the key order of the input, arrays become []any, integral numbers
// int64 and other numbers float64.
func ParseJSON(r io.Reader) (any, error) {
	var dec = json.NewDecoder(r)
	dec.UseNumber()
	var v, err = parseJSONValue(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after top-level JSON value")
	}
	return v, nil
}

func parseJSONValue(dec *json.Decoder) (any, error) {
	var tok, err = dec.Token()
	if err != nil {
		return nil, err
	}
	switch tok := tok.(type) {
	case json.Delim:
		switch tok {
		case '{':
			var r = NewRecord()
			for dec.More() {
				key, err := dec.Token()
				if err != nil {
					return nil, err
				}
				val, err := parseJSONValue(dec)
				if err != nil {
					return nil, err
				}
				r.Set(key.(string), val)
			}
			_, err = dec.Token()
			return r, err
		case '[':
			var list = []any{}
			for dec.More() {
				val, err := parseJSONValue(dec)
				if err != nil {
					return nil, err
				}
				list = append(list, val)
			}
			_, err = dec.Token()
			return list, err
		}
		return nil, fmt.Errorf("unexpected delimiter %v", tok)
	case json.Number:
		if i, err := tok.Int64(); err == nil {
			return i, nil
		}
		return tok.Float64()
	}
	return tok, nil
}

// MarshalJSON writes the record as a JSON object in key order.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	var i = 0
	for k, v := range r.All() {
		if i > 0 {
			buf.WriteByte(',')
		}
		i++
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
