// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package estimate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	cases := []struct {
		name   string
		value  any
		max    int
		bytes  int
		tokens int
		within bool
	}{
		{name: "empty list", value: []any{}, max: 10, bytes: 2, tokens: 1, within: true},
		{name: "exact token multiple", value: "ab", max: 10, bytes: 4, tokens: 1, within: true},
		{name: "rounds up", value: "abc", max: 10, bytes: 5, tokens: 2, within: true},
		{name: "at limit is not within", value: "abcdefgh", max: 10, bytes: 10, tokens: 3, within: false},
		{name: "html is not escaped", value: "<&>", max: 100, bytes: 5, tokens: 2, within: true},
		{name: "null", value: nil, max: 100, bytes: 4, tokens: 1, within: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Of(tc.value, tc.max)
			assert.Equal(t, Size{Bytes: tc.bytes, Tokens: tc.tokens, WithinLimits: tc.within}, got)
		})
	}
}

func TestOfDefaultsBudget(t *testing.T) {
	big := strings.Repeat("x", DefaultMaxBytes)
	assert.False(t, Of(big, 0).WithinLimits)
	assert.True(t, Of("small", 0).WithinLimits)
}

func TestOfUnserializable(t *testing.T) {
	got := Of(make(chan int), 10)
	assert.Equal(t, Size{Bytes: 0, Tokens: 0, WithinLimits: true}, got)
}

func TestKB(t *testing.T) {
	assert.Equal(t, "0.0KB", Size{Bytes: 0}.KB())
	assert.Equal(t, "1.5KB", Size{Bytes: 1536}.KB())
}
