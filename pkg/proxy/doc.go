// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package proxy exposes the read-only HTTP API in front of the Supabase REST
// interface. Each entity route translates its query parameters into filter
// grammar, fetches from the backing store, shapes the rows for a
// payload-constrained LLM client and reports the estimated payload size. A
// relationship route assembles composite views across tables.
package proxy
