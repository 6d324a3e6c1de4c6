// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package entity

// column declares a field with a compact and a detailed max length.
type column struct {
	name, source      string
	compact, detailed int
	detailOnly        bool
}

func field(name, source string, compact, detailed int) column {
	return column{name: name, source: source, compact: compact, detailed: detailed}
}

func detailField(name, source string, detailed int) column {
	return column{name: name, source: source, detailed: detailed, detailOnly: true}
}

func buildFields(cols ...column) map[Profile][]Field {
	out := map[Profile][]Field{}
	for _, c := range cols {
		if !c.detailOnly {
			out[Compact] = append(out[Compact], Field{Name: c.name, Source: c.source, MaxLen: c.compact})
		}
		out[Detailed] = append(out[Detailed], Field{Name: c.name, Source: c.source, MaxLen: c.detailed})
	}
	return out
}

// Default returns the built-in catalog for the CRM tables.
func Default() *Catalog {
	return NewCatalog(
		&Entity{
			Kind:       Call,
			Slug:       "clari-calls",
			Resource:   "clari_calls",
			PrimaryKey: "call_id",
			Filters: []Filter{
				{Param: "search", Column: "call_title", Op: OpILike},
				{Param: "status", Column: "call_status", Op: OpEq},
				{Param: "type", Column: "call_type", Op: OpEq},
				{Param: "account", Column: "crm_account_name", Op: OpILike},
				{Param: "contact", Column: "participant_names", Op: OpILike},
				{Param: "deal", Column: "crm_deal_name", Op: OpILike},
				{Param: "date_from", Column: "call_time", Op: OpGte},
				{Param: "date_to", Column: "call_time", Op: OpLte},
			},
			DefaultOrder: Order{Column: "call_time", Direction: Desc},
			fields: buildFields(
				field("id", "call_id", 0, 0),
				field("title", "call_title", 80, 200),
				field("status", "call_status", 20, 50),
				field("type", "call_type", 20, 50),
				field("time", "call_time", 0, 0),
				field("duration", "call_duration_seconds", 0, 0),
				field("participants", "participant_count", 0, 0),
				field("names", "participant_names", 100, 300),
				field("summary", "full_summary", 120, 500),
				field("takeaways", "key_takeaways", 100, 400),
				field("account", "crm_account_name", 40, 200),
				field("deal", "crm_deal_name", 40, 200),
				detailField("created_at", "created_at", 0),
			),
		},
		&Entity{
			Kind:       Account,
			Slug:       "sfdc-accounts",
			Resource:   "sfdc_accounts",
			PrimaryKey: "account_id",
			Filters: []Filter{
				{Param: "search", Column: "account_name", Op: OpILike},
				{Param: "industry", Column: "industry", Op: OpEq},
				{Param: "revenue_min", Column: "annual_revenue", Op: OpGte},
			},
			DefaultOrder: Order{Column: "account_name", Direction: Desc},
			fields: buildFields(
				field("id", "account_id", 0, 0),
				field("name", "account_name", 50, 200),
				field("industry", "industry", 30, 100),
				field("revenue", "annual_revenue", 0, 0),
				field("website", "website", 30, 200),
				field("employees", "employees", 0, 0),
				field("city", "billing_city", 30, 100),
				field("state", "billing_state_province", 20, 100),
				field("country", "billing_country", 20, 100),
				detailField("description", "description", 500),
			),
		},
		&Entity{
			Kind:       Contact,
			Slug:       "sfdc-contacts",
			Resource:   "sfdc_contacts",
			PrimaryKey: "contact_id",
			Filters: []Filter{
				{Param: "search", Column: "first_name", Op: OpILike},
				{Param: "account", Column: "account_name", Op: OpILike},
				{Param: "title", Column: "title", Op: OpILike},
			},
			DefaultOrder: Order{Column: "last_name", Direction: Asc},
			fields: buildFields(
				field("id", "contact_id", 0, 0),
				field("first_name", "first_name", 30, 100),
				field("last_name", "last_name", 30, 100),
				field("email", "email", 50, 200),
				field("phone", "phone", 20, 50),
				field("title", "title", 40, 200),
				field("account", "account_name", 40, 200),
				field("dept", "department", 30, 100),
				detailField("account_id", "account_id", 0),
			),
		},
		&Entity{
			Kind:       Lead,
			Slug:       "sfdc-leads",
			Resource:   "sfdc_leads",
			PrimaryKey: "lead_id",
			Filters: []Filter{
				{Param: "search", Column: "first_name", Op: OpILike},
				{Param: "status", Column: "status", Op: OpEq},
				{Param: "source", Column: "lead_source", Op: OpEq},
			},
			DefaultOrder: Order{Column: "last_name", Direction: Desc},
			fields: buildFields(
				field("id", "lead_id", 0, 0),
				field("first_name", "first_name", 30, 100),
				field("last_name", "last_name", 30, 100),
				field("email", "email", 50, 200),
				field("phone", "phone", 20, 50),
				field("company", "company", 40, 200),
				field("title", "title", 40, 200),
				field("status", "status", 20, 50),
				field("source", "lead_source", 20, 100),
			),
		},
		&Entity{
			Kind:       Opportunity,
			Slug:       "sfdc-opportunities",
			Resource:   "sfdc_opportunities",
			PrimaryKey: "opportunity_id",
			Filters: []Filter{
				{Param: "search", Column: "opportunity_name", Op: OpILike},
				{Param: "stage", Column: "stage_name", Op: OpEq},
				{Param: "account", Column: "account_name", Op: OpILike},
				{Param: "amount_min", Column: "amount", Op: OpGte},
			},
			DefaultOrder: Order{Column: "close_date", Direction: Desc},
			fields: buildFields(
				field("id", "opportunity_id", 0, 0),
				field("name", "opportunity_name", 60, 200),
				field("account", "account_name", 40, 200),
				field("amount", "amount", 0, 0),
				field("stage", "stage_name", 30, 100),
				field("close_date", "close_date", 0, 0),
				field("probability", "probability", 0, 0),
				field("type", "type", 20, 100),
				detailField("account_id", "account_id", 0),
			),
		},
	)
}
