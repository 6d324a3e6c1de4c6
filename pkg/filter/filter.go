// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package filter translates flat query parameters into PostgREST's
// operator-prefixed filter grammar ("col=eq.v", "col=ilike.%v%", ...).
package filter

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/entity"
)

const (
	ParamLimit          = "limit"
	ParamOffset         = "offset"
	ParamOrderBy        = "order_by"
	ParamOrderDirection = "order_direction"
)

// Options carries the configured limits and modes.
type Options struct {
	// MaxRecords caps the emitted limit.
	MaxRecords int
	// DefaultOrdering applies the entity default order when order_by is absent.
	DefaultOrdering bool
	// Escape escapes LIKE metacharacters inside contains patterns.
	Escape bool
}

type pair struct {
	key, value string
}

// Query is an ordered PostgREST query string. Keys may repeat, as with two
// bounds on the same column.
type Query struct {
	pairs  []pair
	escape bool
}

// NewQuery returns an empty query. When escape is set, ILike escapes its
// value before wrapping it.
func NewQuery(escape bool) *Query {
	return &Query{escape: escape}
}

// Add appends a raw key/value pair.
func (q *Query) Add(key, value string) *Query {
	q.pairs = append(q.pairs, pair{key: key, value: value})
	return q
}

// Limit appends limit=n.
func (q *Query) Limit(n int) *Query {
	return q.Add(ParamLimit, strconv.Itoa(n))
}

// Eq appends col=eq.value.
func (q *Query) Eq(col, value string) *Query {
	return q.Add(col, string(entity.OpEq)+"."+value)
}

// ILike appends col=ilike.%value%.
func (q *Query) ILike(col, value string) *Query {
	if q.escape {
		value = EscapePattern(value)
	}
	return q.Add(col, string(entity.OpILike)+".%"+value+"%")
}

// Op appends a predicate for the given operator.
func (q *Query) Op(col string, op entity.Operator, value string) *Query {
	if op == entity.OpILike {
		return q.ILike(col, value)
	}
	return q.Add(col, string(op)+"."+value)
}

// Order appends order=col.direction.
func (q *Query) Order(col, direction string) *Query {
	return q.Add("order", col+"."+direction)
}

// Len reports the number of clauses.
func (q *Query) Len() int {
	return len(q.pairs)
}

// String encodes the query in insertion order.
func (q *Query) String() string {
	var b strings.Builder
	for i, p := range q.pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

var patternEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `\*`)

// EscapePattern escapes the characters PostgREST and Postgres treat as
// wildcards in LIKE patterns.
func EscapePattern(s string) string {
	return patternEscaper.Replace(s)
}

// Params flattens url.Values, keeping the first value of each key.
func Params(values url.Values) map[string]string {
	out := make(map[string]string, len(values))
	for k, vv := range values {
		if len(vv) > 0 {
			out[k] = vv[0]
		}
	}
	return out
}

// Translate maps incoming parameters onto e's filters. Unrecognized keys are
// ignored. The limit clause is always emitted and never exceeds
// opts.MaxRecords.
func Translate(e *entity.Entity, params map[string]string, opts Options) *Query {
	q := NewQuery(opts.Escape)

	q.Limit(ClampLimit(params[ParamLimit], opts.MaxRecords))

	if offset := strings.TrimSpace(params[ParamOffset]); offset != "" {
		q.Add(ParamOffset, offset)
	}

	for _, f := range e.Filters {
		v, ok := params[f.Param]
		if !ok || v == "" {
			continue
		}
		q.Op(f.Column, f.Op, v)
	}

	if orderBy := strings.TrimSpace(params[ParamOrderBy]); orderBy != "" {
		q.Order(orderBy, direction(params[ParamOrderDirection], e.DefaultOrder.Direction))
	} else if opts.DefaultOrdering && e.DefaultOrder.Column != "" {
		q.Order(e.DefaultOrder.Column, direction("", e.DefaultOrder.Direction))
	}

	return q
}

// ClampLimit resolves a requested limit. Missing, malformed or non-positive
// values resolve to max.
func ClampLimit(raw string, max int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 || n > max {
		return max
	}
	return n
}

func direction(requested, fallback string) string {
	switch d := strings.ToLower(strings.TrimSpace(requested)); d {
	case entity.Asc, entity.Desc:
		return d
	}
	if fallback == "" {
		return entity.Desc
	}
	return fallback
}
