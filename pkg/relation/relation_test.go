// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package relation

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/entity"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/shape"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/source"
)

// fakeStore answers Fetch from in-memory tables, honouring eq and ilike
// clauses on a single column.
type fakeStore struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	fail   map[string]error
	calls  []string
}

func (f *fakeStore) Fetch(_ context.Context, resource, query string) (any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, resource+"?"+query)
	f.mu.Unlock()

	if err := f.fail[resource]; err != nil {
		return nil, err
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return nil, err
	}
	out := []any{}
	for _, row := range f.tables[resource] {
		if matches(row, values) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeStore) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func matches(row map[string]any, values url.Values) bool {
	for col, vv := range values {
		if col == "limit" || col == "order" || col == "offset" {
			continue
		}
		got, _ := stringValue(row[col])
		for _, v := range vv {
			switch {
			case len(v) > 3 && v[:3] == "eq.":
				if got != v[3:] {
					return false
				}
			case len(v) > 6 && v[:6] == "ilike.":
				needle := v[7 : len(v)-1]
				if !containsFold(got, needle) {
					return false
				}
			}
		}
	}
	return true
}

func containsFold(s, sub string) bool {
	return len(sub) == 0 || (len(s) >= len(sub) && indexFold(s, sub) >= 0)
}

func indexFold(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if equalFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

func equalFold(a, b string) bool {
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

func crmStore() *fakeStore {
	return &fakeStore{
		tables: map[string][]map[string]any{
			"sfdc_accounts": {
				{"account_id": "001", "account_name": "Acme Corp", "industry": "Manufacturing"},
				{"account_id": "002", "account_name": "Globex", "industry": "Energy"},
			},
			"sfdc_contacts": {
				{"contact_id": "003A", "first_name": "Jane", "last_name": "Doe", "account_id": "001", "account_name": "Acme Corp"},
				{"contact_id": "003B", "first_name": "Raj", "last_name": "Patel", "account_id": "001", "account_name": "Acme Corp"},
				{"contact_id": "003C", "first_name": "Orphan", "last_name": "Row"},
			},
			"sfdc_opportunities": {
				{"opportunity_id": "006A", "opportunity_name": "Acme Renewal 2024", "account_id": "001", "amount": json.Number("120000")},
			},
			"clari_calls": {
				{"call_id": "C1", "call_title": "Renewal kickoff", "crm_account_id": "001", "crm_account_name": "Acme", "crm_deal_id": "006A", "crm_deal_name": "Acme Renewal", "participant_names": "Jane Doe, Sam Lee"},
				{"call_id": "C2", "call_title": "Intro", "crm_account_name": "Unknown Ltd", "participant_names": "Pat"},
			},
		},
	}
}

func newResolver(f source.Fetcher) *Resolver {
	return New(f, entity.Default(), entity.Detailed, Options{Limit: 10})
}

func recordID(t *testing.T, v any) any {
	t.Helper()
	rec, ok := v.(*shape.Record)
	require.True(t, ok, "expected *shape.Record, got %T", v)
	id, _ := rec.Get("id")
	return id
}

func listIDs(t *testing.T, v any) []any {
	t.Helper()
	items, ok := v.([]any)
	require.True(t, ok, "expected []any, got %T", v)
	var ids []any
	for _, item := range items {
		ids = append(ids, recordID(t, item))
	}
	return ids
}

func TestResolveAccount(t *testing.T) {
	defer goleak.VerifyNone(t)

	res, err := newResolver(crmStore()).Resolve(context.Background(), TypeAccount, "001")
	require.NoError(t, err)

	assert.Equal(t, "001", recordID(t, res[KeyAccount]))
	assert.ElementsMatch(t, []any{"003A", "003B"}, listIDs(t, res[KeyContacts]))
	assert.Equal(t, []any{"006A"}, listIDs(t, res[KeyOpportunities]))
	assert.Equal(t, []any{"C1"}, listIDs(t, res[KeyCalls]))
}

func TestResolveAccountWithoutRelations(t *testing.T) {
	defer goleak.VerifyNone(t)

	res, err := newResolver(crmStore()).Resolve(context.Background(), TypeAccount, "002")
	require.NoError(t, err)

	assert.Equal(t, "002", recordID(t, res[KeyAccount]))
	assert.NotContains(t, res, KeyContacts)
	assert.NotContains(t, res, KeyOpportunities)
	assert.NotContains(t, res, KeyCalls)

	res, err = newResolver(crmStore()).Resolve(context.Background(), TypeAccount, "999")
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestResolveContact(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := crmStore()
	res, err := newResolver(store).Resolve(context.Background(), TypeContact, "003A")
	require.NoError(t, err)

	assert.Equal(t, "003A", recordID(t, res[KeyContact]))
	assert.Equal(t, "001", recordID(t, res[KeyAccount]))
	assert.Equal(t, []any{"C1"}, listIDs(t, res[KeyCalls]))
	assert.Contains(t, store.queries(), "clari_calls?participant_names=ilike.%25Jane%25&limit=10&order=call_time.desc")
}

func TestResolveContactSkipsMissingPrerequisites(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := crmStore()
	res, err := newResolver(store).Resolve(context.Background(), TypeContact, "003C")
	require.NoError(t, err)

	assert.Equal(t, "003C", recordID(t, res[KeyContact]))
	assert.NotContains(t, res, KeyAccount)
	// "Orphan" matches no participants.
	assert.NotContains(t, res, KeyCalls)
	for _, q := range store.queries() {
		assert.NotContains(t, q, "sfdc_accounts", "account lookup must be skipped without an account id")
	}
}

func TestResolveOpportunity(t *testing.T) {
	defer goleak.VerifyNone(t)

	res, err := newResolver(crmStore()).Resolve(context.Background(), TypeOpportunity, "006A")
	require.NoError(t, err)

	assert.Equal(t, "006A", recordID(t, res[KeyOpportunity]))
	assert.Equal(t, "001", recordID(t, res[KeyAccount]))
	assert.Equal(t, []any{"C1"}, listIDs(t, res[KeyCalls]))
}

func TestResolveCallByNameMatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	res, err := newResolver(crmStore()).Resolve(context.Background(), TypeCall, "C1")
	require.NoError(t, err)

	assert.Equal(t, "C1", recordID(t, res[KeyCall]))
	assert.Equal(t, "001", recordID(t, res[KeyAccount]))
	assert.Equal(t, "006A", recordID(t, res[KeyOpportunity]))

	// No name match leaves the relations absent.
	res, err = newResolver(crmStore()).Resolve(context.Background(), TypeCall, "C2")
	require.NoError(t, err)
	assert.Equal(t, "C2", recordID(t, res[KeyCall]))
	assert.NotContains(t, res, KeyAccount)
	assert.NotContains(t, res, KeyOpportunity)
}

func TestResolveMissingPrimaryIsEmpty(t *testing.T) {
	defer goleak.VerifyNone(t)

	for _, typ := range []Type{TypeContact, TypeOpportunity, TypeCall} {
		res, err := newResolver(crmStore()).Resolve(context.Background(), typ, "nope")
		require.NoError(t, err, typ)
		assert.Empty(t, res, typ)
	}
}

func TestResolveEmptyIDMakesNoCalls(t *testing.T) {
	store := crmStore()
	res, err := newResolver(store).Resolve(context.Background(), TypeAccount, "  ")
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.Empty(t, store.queries())
}

func TestResolvePropagatesFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := crmStore()
	store.fail = map[string]error{"clari_calls": &source.Error{Kind: source.KindUnavailable, Resource: "clari_calls", Status: 503, Reason: "Service Unavailable"}}

	_, err := newResolver(store).Resolve(context.Background(), TypeAccount, "001")
	require.Error(t, err)
	assert.ErrorIs(t, err, source.ErrSourceUnavailable)
}

func TestResolveUnknownType(t *testing.T) {
	_, err := newResolver(crmStore()).Resolve(context.Background(), Type("lead"), "1")
	assert.ErrorIs(t, err, ErrUnknownType)

	_, err = ParseType("lead")
	assert.ErrorIs(t, err, ErrUnknownType)

	typ, err := ParseType("opportunity")
	require.NoError(t, err)
	assert.Equal(t, "opportunity_id", typ.IDParam())
}

func TestStringValue(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{in: "001", want: "001", ok: true},
		{in: "  ", ok: false},
		{in: json.Number("42"), want: "42", ok: true},
		{in: float64(7), want: "7", ok: true},
		{in: nil, ok: false},
		{in: true, ok: false},
	}
	for _, tc := range cases {
		got, ok := stringValue(tc.in)
		assert.Equal(t, tc.ok, ok, "%v", tc.in)
		assert.Equal(t, tc.want, got, "%v", tc.in)
	}
}
