// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package entity

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Overrides adjusts a catalog without redeclaring it. Keys of Entities are
// entity kinds; keys of MaxLength are profile names then output field names.
//
//	entities:
//	  call:
//	    order_column: call_time
//	    order_direction: desc
//	    max_length:
//	      compact:
//	        summary: 200
type Overrides struct {
	Entities map[string]EntityOverride `yaml:"entities"`
}

// EntityOverride holds the adjustable knobs of a single entity.
type EntityOverride struct {
	OrderColumn    string                    `yaml:"order_column"`
	OrderDirection string                    `yaml:"order_direction"`
	MaxLength      map[string]map[string]int `yaml:"max_length"`
}

// LoadOverrides reads an overrides file. Unknown YAML keys are rejected.
func LoadOverrides(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, fmt.Errorf("read entity overrides: %w", err)
	}
	return ParseOverrides(data)
}

// ParseOverrides decodes overrides from YAML.
func ParseOverrides(data []byte) (Overrides, error) {
	var o Overrides
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && !errors.Is(err, io.EOF) {
		return Overrides{}, fmt.Errorf("decode entity overrides: %w", err)
	}
	return o, nil
}

// Apply returns a copy of c with the overrides applied. c is left untouched.
func (c *Catalog) Apply(o Overrides) (*Catalog, error) {
	out := c.clone()

	kinds := make([]string, 0, len(o.Entities))
	for k := range o.Entities {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, k := range kinds {
		ov := o.Entities[k]
		e, ok := out.Get(Kind(k))
		if !ok {
			return nil, fmt.Errorf("overrides: unknown entity %q", k)
		}
		if ov.OrderColumn != "" {
			e.DefaultOrder.Column = ov.OrderColumn
		}
		if ov.OrderDirection != "" {
			if ov.OrderDirection != Asc && ov.OrderDirection != Desc {
				return nil, fmt.Errorf("overrides: %s: order_direction must be %q or %q, got %q", k, Asc, Desc, ov.OrderDirection)
			}
			e.DefaultOrder.Direction = ov.OrderDirection
		}
		for profileName, limits := range ov.MaxLength {
			p, err := ParseProfile(profileName)
			if err != nil {
				return nil, fmt.Errorf("overrides: %s: %w", k, err)
			}
			fields := e.fields[p]
			for name, maxLen := range limits {
				if maxLen < 0 {
					return nil, fmt.Errorf("overrides: %s.%s.%s: max length must not be negative", k, p, name)
				}
				idx := indexOfField(fields, name)
				if idx < 0 {
					return nil, fmt.Errorf("overrides: %s.%s: unknown field %q", k, p, name)
				}
				fields[idx].MaxLen = maxLen
			}
		}
	}
	return out, nil
}

func indexOfField(fields []Field, name string) int {
	for i, f := range fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}
