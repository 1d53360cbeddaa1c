package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Value is a single field value in a Record. It holds either a plain string
// or a list of strings (for example the tags attached to a quote).
type Value struct {
	text   string
	list   []string
	isList bool
}

// String creates a string value.
func String(s string) Value {
	return Value{text: s}
}

// List creates a list value. A list with no items is still a list and
// serializes as an empty JSON array rather than null.
func List(items ...string) Value {
	return Value{list: append([]string{}, items...), isList: true}
}

// IsList reports whether the value holds a list of strings.
func (v Value) IsList() bool {
	return v.isList
}

// Items returns a copy of the list items. For string values it returns a
// single-element slice.
func (v Value) Items() []string {
	if !v.isList {
		return []string{v.text}
	}
	return append([]string{}, v.list...)
}

// Text returns the value flattened to a single string. List items are
// joined with ", ".
func (v Value) Text() string {
	if v.isList {
		return strings.Join(v.list, ", ")
	}
	return v.text
}

// MarshalJSON encodes the value as a JSON string or array of strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isList {
		return marshalText(v.list)
	}
	return marshalText(v.text)
}

// marshalText encodes v without escaping <, > and &, so scraped text is
// written exactly as it appeared on the page.
func marshalText(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON decodes a JSON string or array of strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = String(s)
		return nil
	}

	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("field value must be a string or a list of strings: %w", err)
	}
	*v = List(items...)
	return nil
}

// Field is a single key/value pair of a Record.
type Field struct {
	Key   string
	Value Value
}

// F is shorthand for building a Field.
func F(key string, value Value) Field {
	return Field{Key: key, Value: value}
}

// Record is one extracted unit of structured data: an ordered mapping from
// field name to value. Records have no fixed schema; each site decides its
// own fields. A Record is not modified after New returns it.
type Record struct {
	fields *orderedmap.OrderedMap[string, Value]
}

// New builds a record from the given fields, keeping their order. A key that
// appears twice keeps its first position and takes the last value.
func New(fields ...Field) Record {
	m := orderedmap.New[string, Value]()
	for _, f := range fields {
		m.Set(f.Key, f.Value)
	}
	return Record{fields: m}
}

// Len returns the number of fields.
func (r Record) Len() int {
	if r.fields == nil {
		return 0
	}
	return r.fields.Len()
}

// Get returns the value stored under key.
func (r Record) Get(key string) (Value, bool) {
	if r.fields == nil {
		return Value{}, false
	}
	return r.fields.Get(key)
}

// Keys returns the field names in insertion order.
func (r Record) Keys() []string {
	keys := make([]string, 0, r.Len())
	for _, f := range r.Fields() {
		keys = append(keys, f.Key)
	}
	return keys
}

// Fields returns the fields in insertion order.
func (r Record) Fields() []Field {
	fields := make([]Field, 0, r.Len())
	if r.fields == nil {
		return fields
	}
	for pair := r.fields.Oldest(); pair != nil; pair = pair.Next() {
		fields = append(fields, Field{Key: pair.Key, Value: pair.Value})
	}
	return fields
}

// MarshalJSON encodes the record as a JSON object with keys in insertion
// order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := marshalText(f.Key)
		if err != nil {
			return nil, err
		}
		value, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("failed to encode field %q: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping the key order of the input.
func (r *Record) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, Value]()
	if err := m.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}
	r.fields = m
	return nil
}

// KeyUnion returns the sorted union of the keys of all records.
func KeyUnion(records []Record) []string {
	seen := make(map[string]struct{})
	var keys []string
	for _, r := range records {
		for _, key := range r.Keys() {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}
