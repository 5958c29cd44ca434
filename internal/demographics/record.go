// Package demographics loads municipality and region demographic rows from
// semicolon-delimited text into ordered records.
package demographics

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"

	"github.com/rotisserie/eris"
)

// Well-known field names.
const (
	FieldRegion       = "region"
	FieldMunicipality = "municipality"
	FieldDate         = "date"
)

// Value is either a number or text. The zero Value is empty text.
type Value struct {
	Text     string
	Number   float64
	IsNumber bool
}

// Num returns a numeric Value.
func Num(f float64) Value { return Value{Number: f, IsNumber: true} }

// Text returns a text Value.
func Text(s string) Value { return Value{Text: s} }

// Defined reports whether v is a usable number: numeric and not NaN.
func (v Value) Defined() bool {
	return v.IsNumber && !math.IsNaN(v.Number)
}

func (v Value) String() string {
	if v.IsNumber {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// Field is one named value of a Record.
type Field struct {
	Name  string
	Value Value
}

// Record is one row of demographic data: an ordered set of named values.
// Field order follows the source header and survives JSON round trips.
type Record struct {
	fields []Field
	index  map[string]int
}

// NewRecord builds a record from fields in order. A repeated name keeps its
// first position and its last value.
func NewRecord(fields ...Field) Record {
	var r Record
	for _, f := range fields {
		r.Set(f.Name, f.Value)
	}
	return r
}

// Set assigns a field, appending it if new.
func (r *Record) Set(name string, v Value) {
	if r.index == nil {
		r.index = make(map[string]int)
	}
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = v
		return
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: v})
}

// Get returns the named field's value.
func (r Record) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Has reports whether the field exists.
func (r Record) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Text returns the named field as text, or "" if absent.
func (r Record) Text(name string) string {
	v, _ := r.Get(name)
	return v.String()
}

// Number returns the named field's number, or 0 if absent or text.
func (r Record) Number(name string) float64 {
	v, ok := r.Get(name)
	if !ok || !v.IsNumber {
		return 0
	}
	return v.Number
}

// Region returns the region field.
func (r Record) Region() string { return r.Text(FieldRegion) }

// Municipality returns the municipality field.
func (r Record) Municipality() string { return r.Text(FieldMunicipality) }

// Date returns the raw date field.
func (r Record) Date() string { return r.Text(FieldDate) }

// Keys returns field names in order.
func (r Record) Keys() []string {
	keys := make([]string, len(r.fields))
	for i, f := range r.fields {
		keys[i] = f.Name
	}
	return keys
}

// Fields returns a copy of the fields in order.
func (r Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.fields) }

// Clone returns an independent copy.
func (r Record) Clone() Record {
	return NewRecord(r.fields...)
}

// Merge copies every field of src onto r. Fields absent from src are left
// untouched.
func (r *Record) Merge(src Record) {
	for _, f := range src.fields {
		r.Set(f.Name, f.Value)
	}
}

// MarshalJSON writes the record as an object in field order. Numbers are
// JSON numbers; NaN and infinities are written as null.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, eris.Wrapf(err, "demographics: marshal key %q", f.Name)
		}
		buf.Write(key)
		buf.WriteByte(':')

		switch {
		case f.Value.IsNumber && (math.IsNaN(f.Value.Number) || math.IsInf(f.Value.Number, 0)):
			buf.WriteString("null")
		case f.Value.IsNumber:
			buf.WriteString(strconv.FormatFloat(f.Value.Number, 'f', -1, 64))
		default:
			val, err := json.Marshal(f.Value.Text)
			if err != nil {
				return nil, eris.Wrapf(err, "demographics: marshal %q", f.Name)
			}
			buf.Write(val)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a flat object, keeping key order. Numbers become
// numeric values, strings become text, null becomes empty text, and
// booleans become "true"/"false".
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return eris.Wrap(err, "demographics: read record")
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return eris.Errorf("demographics: expected object, got %v", tok)
	}

	*r = Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return eris.Wrap(err, "demographics: read key")
		}
		key, ok := tok.(string)
		if !ok {
			return eris.Errorf("demographics: expected key, got %v", tok)
		}

		tok, err = dec.Token()
		if err != nil {
			return eris.Wrapf(err, "demographics: read %q", key)
		}
		switch v := tok.(type) {
		case json.Number:
			f, err := v.Float64()
			if err != nil {
				return eris.Wrapf(err, "demographics: parse %q", key)
			}
			r.Set(key, Num(f))
		case string:
			r.Set(key, Text(v))
		case bool:
			r.Set(key, Text(strconv.FormatBool(v)))
		case nil:
			r.Set(key, Text(""))
		default:
			return eris.Errorf("demographics: field %q is not a scalar", key)
		}
	}

	if _, err := dec.Token(); err != nil {
		return eris.Wrap(err, "demographics: read record end")
	}
	return nil
}
