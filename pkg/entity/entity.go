// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package entity holds the per-table configuration that drives request
// translation and response shaping: which backing resource a route maps to,
// which query parameters become filters, how rows are ordered by default and
// which columns survive shaping at what length.
package entity

import (
	"fmt"
	"sort"
	"strings"
)

// Kind is the logical name of a backing table.
type Kind string

const (
	Call        Kind = "call"
	Account     Kind = "account"
	Contact     Kind = "contact"
	Lead        Kind = "lead"
	Opportunity Kind = "opportunity"
)

// Operator is a PostgREST filter operator.
type Operator string

const (
	OpEq    Operator = "eq"
	OpILike Operator = "ilike"
	OpGte   Operator = "gte"
	OpLte   Operator = "lte"
)

// Profile selects a truncation scheme.
type Profile string

const (
	// Compact keeps payloads inside the strict plugin budget.
	Compact Profile = "compact"
	// Detailed is used by relationship and detail views.
	Detailed Profile = "detailed"
)

// Profiles lists every known profile.
var Profiles = []Profile{Compact, Detailed}

// ParseProfile validates a profile name.
func ParseProfile(s string) (Profile, error) {
	p := Profile(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Profiles {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown truncation profile %q", s)
}

const (
	Asc  = "asc"
	Desc = "desc"
)

// Filter maps one recognized query parameter onto a column predicate.
type Filter struct {
	Param  string
	Column string
	Op     Operator
}

// Field projects one source column onto an output field. MaxLen of zero
// means the value passes through untouched.
type Field struct {
	Name   string
	Source string
	MaxLen int
}

// Order is a column plus direction.
type Order struct {
	Column    string
	Direction string
}

// Entity describes one logical table.
type Entity struct {
	Kind       Kind
	Slug       string
	Resource   string
	PrimaryKey string
	Filters    []Filter
	// DefaultOrder.Column is applied only in default-ordering mode;
	// DefaultOrder.Direction is used whenever order_direction is omitted.
	DefaultOrder Order

	fields map[Profile][]Field
}

// Fields returns the field map for the given profile, falling back to the
// compact map for unknown profiles.
func (e *Entity) Fields(p Profile) []Field {
	if f, ok := e.fields[p]; ok {
		return f
	}
	return e.fields[Compact]
}

func (e *Entity) clone() *Entity {
	c := *e
	c.Filters = append([]Filter(nil), e.Filters...)
	c.fields = make(map[Profile][]Field, len(e.fields))
	for p, f := range e.fields {
		c.fields[p] = append([]Field(nil), f...)
	}
	return &c
}

// Catalog is the set of entities the proxy serves. It is read-only once built
// and safe for concurrent use.
type Catalog struct {
	entities map[Kind]*Entity
	order    []Kind
}

// NewCatalog builds a catalog from the given entities, keeping their order.
func NewCatalog(entities ...*Entity) *Catalog {
	c := &Catalog{entities: make(map[Kind]*Entity, len(entities))}
	for _, e := range entities {
		if _, dup := c.entities[e.Kind]; !dup {
			c.order = append(c.order, e.Kind)
		}
		c.entities[e.Kind] = e
	}
	return c
}

// Get returns the entity for kind.
func (c *Catalog) Get(k Kind) (*Entity, bool) {
	e, ok := c.entities[k]
	return e, ok
}

// Lookup resolves a kind, route slug or resource name.
func (c *Catalog) Lookup(tag string) (*Entity, bool) {
	if e, ok := c.entities[Kind(tag)]; ok {
		return e, true
	}
	for _, k := range c.order {
		e := c.entities[k]
		if e.Slug == tag || e.Resource == tag {
			return e, true
		}
	}
	return nil, false
}

// All returns every entity in declaration order.
func (c *Catalog) All() []*Entity {
	out := make([]*Entity, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, c.entities[k])
	}
	return out
}

// Kinds returns the known kinds sorted by name.
func (c *Catalog) Kinds() []string {
	out := make([]string, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) clone() *Catalog {
	entities := make([]*Entity, 0, len(c.order))
	for _, k := range c.order {
		entities = append(entities, c.entities[k].clone())
	}
	return NewCatalog(entities...)
}
