// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package shape projects wide backing-store rows onto narrow records whose
// text fields are cut to per-field limits.
package shape

import (
	"bytes"
	"encoding/json"

	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/entity"
)

// Ellipsis marks a truncated string.
const Ellipsis = "..."

// Truncate cuts strings longer than max runes and appends Ellipsis. Any
// other value, and any string when max <= 0, is returned unchanged.
func Truncate(v any, max int) any {
	s, ok := v.(string)
	if !ok || max <= 0 {
		return v
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i] + Ellipsis
		}
		n++
	}
	return s
}

// Record is a shaped row. It marshals to a JSON object whose keys follow the
// entity's field order.
type Record struct {
	keys   []string
	values map[string]any
}

// Get returns the value of an output field.
func (r *Record) Get(name string) (any, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Keys returns the output field names in order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.keys...)
}

// Map returns a copy of the record as a plain map.
func (r *Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON implements json.Marshaler.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := marshalValue(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalValue(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Row shapes a single source row. Missing or null source columns become
// null output fields.
func Row(row map[string]any, fields []entity.Field) *Record {
	r := &Record{
		keys:   make([]string, 0, len(fields)),
		values: make(map[string]any, len(fields)),
	}
	for _, f := range fields {
		r.keys = append(r.keys, f.Name)
		r.values[f.Name] = Truncate(row[f.Source], f.MaxLen)
	}
	return r
}

// Rows shapes every object in data. Non-array input is returned unchanged,
// as is any array element that is not an object.
func Rows(data any, fields []entity.Field) any {
	rows, ok := data.([]any)
	if !ok {
		return data
	}
	out := make([]any, 0, len(rows))
	for _, item := range rows {
		row, ok := item.(map[string]any)
		if !ok {
			out = append(out, item)
			continue
		}
		out = append(out, Row(row, fields))
	}
	return out
}

// Shaper applies one truncation profile across a catalog.
type Shaper struct {
	Catalog *entity.Catalog
	Profile entity.Profile
}

// Shape shapes data for the entity named by tag (kind, slug or resource).
// Unknown tags return data unchanged.
func (s Shaper) Shape(tag string, data any) any {
	e, ok := s.Catalog.Lookup(tag)
	if !ok {
		return data
	}
	return Rows(data, e.Fields(s.Profile))
}

// One shapes a single row of entity e.
func (s Shaper) One(e *entity.Entity, row map[string]any) *Record {
	return Row(row, e.Fields(s.Profile))
}
