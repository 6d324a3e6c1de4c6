// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package source

import (
	"errors"
	"fmt"
)

// Kind classifies a backing-store failure.
type Kind string

const (
	// KindUnavailable covers non-2xx responses and transport failures.
	KindUnavailable Kind = "SourceUnavailable"
	// KindDecode covers malformed JSON bodies.
	KindDecode Kind = "DecodeError"
)

// Sentinels for errors.Is checks against an *Error of the matching kind.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrDecode            = errors.New("decode error")
)

// Error wraps a failed backing-store call.
type Error struct {
	Kind     Kind   // Kind is the failure class.
	Resource string // Resource is the backing table that was queried.
	Status   int    // Status is the upstream HTTP status, zero for transport failures.
	Reason   string // Reason is the upstream status text.
	Timeout  bool   // Timeout reports whether the call ran out of time.
	Err      error  // Err retains the original cause.
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Kind == KindDecode:
		return fmt.Sprintf("Supabase API error: invalid JSON from %s: %v", e.Resource, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("Supabase API error: %d %s", e.Status, e.Reason)
	default:
		return fmt.Sprintf("Supabase API error: request to %s failed: %v", e.Resource, e.Err)
	}
}

// Unwrap exposes the underlying error for errors.Is / errors.As checks.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrSourceUnavailable:
		return e.Kind == KindUnavailable
	case ErrDecode:
		return e.Kind == KindDecode
	}
	return false
}
