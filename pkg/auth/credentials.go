// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package auth

import (
	"errors"
	"net/http"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderAPIKey        = "apikey"
)

// Credentials injects the static headers the Supabase REST gateway expects.
// The key comes from configuration; callers never supply it.
type Credentials struct {
	Key string
}

// NewCredentials constructs credentials for the given anon or service key.
func NewCredentials(key string) *Credentials {
	return &Credentials{Key: key}
}

// Attach mutates the request by setting the bearer token and API key headers.
func (c *Credentials) Attach(req *http.Request) error {
	if c == nil || c.Key == "" {
		return errors.New("supabase key must be set")
	}

	req.Header.Set(HeaderAuthorization, "Bearer "+c.Key)
	req.Header.Set(HeaderAPIKey, c.Key)
	req.Header.Set("Accept", "application/json")

	return nil
}
