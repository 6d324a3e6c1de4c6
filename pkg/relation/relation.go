// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package relation follows the implicit links between CRM tables. Links are
// inferred at query time from foreign-key columns or, where the tables only
// share a display name, from case-insensitive substring matches. Name matches
// are best effort: they can miss and they can over-match.
package relation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/entity"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/filter"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/shape"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/source"
)

// Type is a relationship entry point.
type Type string

const (
	TypeAccount     Type = "account"
	TypeContact     Type = "contact"
	TypeOpportunity Type = "opportunity"
	TypeCall        Type = "call"
)

// Types lists the entry points in a stable order.
var Types = []Type{TypeAccount, TypeContact, TypeOpportunity, TypeCall}

// ErrUnknownType is returned for entry points outside Types.
var ErrUnknownType = errors.New("unknown relationship type")

// ParseType validates a relationship type.
func ParseType(s string) (Type, error) {
	for _, t := range Types {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrUnknownType, s)
}

// IDParam is the query parameter carrying the entry point's identifier.
func (t Type) IDParam() string {
	return string(t) + "_id"
}

// Result keys.
const (
	KeyAccount       = "account"
	KeyContact       = "contact"
	KeyOpportunity   = "opportunity"
	KeyCall          = "call"
	KeyContacts      = "contacts"
	KeyOpportunities = "opportunities"
	KeyCalls         = "calls"
)

// Result maps relation names to a shaped record or a list of them. Relations
// that were skipped or matched nothing are absent.
type Result map[string]any

// Options configures related-list lookups.
type Options struct {
	// Limit caps every related list.
	Limit int
	// Escape escapes LIKE metacharacters in name matches.
	Escape bool
}

// Resolver assembles composite views over the catalog's tables.
type Resolver struct {
	fetcher source.Fetcher
	catalog *entity.Catalog
	shaper  shape.Shaper
	opts    Options
	logger  zerolog.Logger
}

// New constructs a Resolver. Records are shaped with the given profile.
func New(fetcher source.Fetcher, catalog *entity.Catalog, profile entity.Profile, opts Options) *Resolver {
	if opts.Limit < 1 {
		opts.Limit = 10
	}
	return &Resolver{
		fetcher: fetcher,
		catalog: catalog,
		shaper:  shape.Shaper{Catalog: catalog, Profile: profile},
		opts:    opts,
		logger:  log.With().Str("component", "relation").Logger(),
	}
}

// Resolve runs the lookups for one entry point. An empty id yields an empty
// result. Any failed lookup fails the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, t Type, id string) (Result, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Result{}, nil
	}

	start := time.Now()
	var (
		res Result
		err error
	)
	switch t {
	case TypeAccount:
		res, err = r.account(ctx, id)
	case TypeContact:
		res, err = r.contact(ctx, id)
	case TypeOpportunity:
		res, err = r.opportunity(ctx, id)
	case TypeCall:
		res, err = r.call(ctx, id)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, t)
	}
	if err != nil {
		return nil, err
	}

	r.logger.Debug().
		Str("type", string(t)).
		Str("id", id).
		Int("relations", len(res)).
		Dur("duration", time.Since(start)).
		Msg("relationships resolved")
	return res, nil
}

// account fans out to the account row and its three related lists; all four
// depend only on the id.
func (r *Resolver) account(ctx context.Context, id string) (Result, error) {
	var (
		acct                  *shape.Record
		contacts, opps, calls []any
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		acct, _, err = r.one(gctx, entity.Account, r.newQuery().Eq("account_id", id))
		return err
	})
	g.Go(func() (err error) {
		contacts, err = r.list(gctx, entity.Contact, r.newQuery().Eq("account_id", id))
		return err
	})
	g.Go(func() (err error) {
		opps, err = r.list(gctx, entity.Opportunity, r.newQuery().Eq("account_id", id))
		return err
	})
	g.Go(func() (err error) {
		calls, err = r.list(gctx, entity.Call, r.newQuery().Eq("crm_account_id", id))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := Result{}
	res.setRecord(KeyAccount, acct)
	res.setList(KeyContacts, contacts)
	res.setList(KeyOpportunities, opps)
	res.setList(KeyCalls, calls)
	return res, nil
}

// contact fetches the contact, then its account by id and the calls whose
// participant names mention the contact's first name.
func (r *Resolver) contact(ctx context.Context, id string) (Result, error) {
	rec, row, err := r.one(ctx, entity.Contact, r.newQuery().Eq("contact_id", id))
	if err != nil || rec == nil {
		return Result{}, err
	}

	var (
		acct  *shape.Record
		calls []any
	)
	g, gctx := errgroup.WithContext(ctx)
	if accountID, ok := stringValue(row["account_id"]); ok {
		g.Go(func() (err error) {
			acct, _, err = r.one(gctx, entity.Account, r.newQuery().Eq("account_id", accountID))
			return err
		})
	}
	if firstName, ok := stringValue(row["first_name"]); ok {
		g.Go(func() (err error) {
			calls, err = r.list(gctx, entity.Call, r.newQuery().ILike("participant_names", firstName))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := Result{}
	res.setRecord(KeyContact, rec)
	res.setRecord(KeyAccount, acct)
	res.setList(KeyCalls, calls)
	return res, nil
}

// opportunity fetches the opportunity, then its account and the calls
// linked to the deal id.
func (r *Resolver) opportunity(ctx context.Context, id string) (Result, error) {
	rec, row, err := r.one(ctx, entity.Opportunity, r.newQuery().Eq("opportunity_id", id))
	if err != nil || rec == nil {
		return Result{}, err
	}

	var (
		acct  *shape.Record
		calls []any
	)
	g, gctx := errgroup.WithContext(ctx)
	if accountID, ok := stringValue(row["account_id"]); ok {
		g.Go(func() (err error) {
			acct, _, err = r.one(gctx, entity.Account, r.newQuery().Eq("account_id", accountID))
			return err
		})
	}
	g.Go(func() (err error) {
		calls, err = r.list(gctx, entity.Call, r.newQuery().Eq("crm_deal_id", id))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := Result{}
	res.setRecord(KeyOpportunity, rec)
	res.setRecord(KeyAccount, acct)
	res.setList(KeyCalls, calls)
	return res, nil
}

// call fetches the call, then the account and opportunity whose names
// contain the call's CRM account and deal names.
func (r *Resolver) call(ctx context.Context, id string) (Result, error) {
	rec, row, err := r.one(ctx, entity.Call, r.newQuery().Eq("call_id", id))
	if err != nil || rec == nil {
		return Result{}, err
	}

	var acct, opp *shape.Record
	g, gctx := errgroup.WithContext(ctx)
	if accountName, ok := stringValue(row["crm_account_name"]); ok {
		g.Go(func() (err error) {
			acct, _, err = r.one(gctx, entity.Account, r.newQuery().ILike("account_name", accountName))
			return err
		})
	}
	if dealName, ok := stringValue(row["crm_deal_name"]); ok {
		g.Go(func() (err error) {
			opp, _, err = r.one(gctx, entity.Opportunity, r.newQuery().ILike("opportunity_name", dealName))
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := Result{}
	res.setRecord(KeyCall, rec)
	res.setRecord(KeyAccount, acct)
	res.setRecord(KeyOpportunity, opp)
	return res, nil
}

func (r *Resolver) newQuery() *filter.Query {
	return filter.NewQuery(r.opts.Escape)
}

// one returns the first matching row, shaped and raw. A nil record means no
// match.
func (r *Resolver) one(ctx context.Context, k entity.Kind, q *filter.Query) (*shape.Record, map[string]any, error) {
	e, rows, err := r.fetch(ctx, k, q.Limit(1))
	if err != nil || len(rows) == 0 {
		return nil, nil, err
	}
	return r.shaper.One(e, rows[0]), rows[0], nil
}

// list returns every matching row shaped, in the entity's default order.
func (r *Resolver) list(ctx context.Context, k entity.Kind, q *filter.Query) ([]any, error) {
	e, ok := r.catalog.Get(k)
	if !ok {
		return nil, fmt.Errorf("entity %q not configured", k)
	}
	q.Limit(r.opts.Limit)
	if e.DefaultOrder.Column != "" {
		q.Order(e.DefaultOrder.Column, e.DefaultOrder.Direction)
	}
	_, rows, err := r.fetch(ctx, k, q)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, r.shaper.One(e, row))
	}
	return out, nil
}

func (r *Resolver) fetch(ctx context.Context, k entity.Kind, q *filter.Query) (*entity.Entity, []map[string]any, error) {
	e, ok := r.catalog.Get(k)
	if !ok {
		return nil, nil, fmt.Errorf("entity %q not configured", k)
	}
	data, err := r.fetcher.Fetch(ctx, e.Resource, q.String())
	if err != nil {
		return nil, nil, err
	}
	items, _ := data.([]any)
	rows := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if row, ok := item.(map[string]any); ok {
			rows = append(rows, row)
		}
	}
	return e, rows, nil
}

func (res Result) setRecord(key string, rec *shape.Record) {
	if rec != nil {
		res[key] = rec
	}
}

func (res Result) setList(key string, items []any) {
	if len(items) > 0 {
		res[key] = items
	}
}

// stringValue renders an identifier or name column as a non-empty string.
func stringValue(v any) (string, bool) {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case json.Number:
		s = val.String()
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}
