// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package estimate sizes a payload against the client's byte budget.
package estimate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DefaultMaxBytes is the client's response size budget.
const DefaultMaxBytes = 2 * 1024 * 1024

// bytesPerToken approximates tokenizer density for English JSON.
const bytesPerToken = 4

// Size is the outcome of estimating one payload.
type Size struct {
	Bytes        int
	Tokens       int
	WithinLimits bool
}

// KB renders the byte length the way the envelope reports it, e.g. "3.2KB".
func (s Size) KB() string {
	return fmt.Sprintf("%.1fKB", float64(s.Bytes)/1024)
}

// Of serializes v and reports its byte length, ceil(bytes/4) tokens and
// whether the length is strictly below maxBytes. A non-positive maxBytes
// uses DefaultMaxBytes. Values that cannot be serialized count as empty.
func Of(v any, maxBytes int) Size {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	n := serializedLen(v)
	return Size{
		Bytes:        n,
		Tokens:       (n + bytesPerToken - 1) / bytesPerToken,
		WithinLimits: n < maxBytes,
	}
}

func serializedLen(v any) int {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return 0
	}
	// Encode terminates with a newline that is not part of the value.
	return buf.Len() - 1
}
