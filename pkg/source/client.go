// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Package source is the read-only client for the Supabase REST interface.
package source

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/auth"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/config"
)

const restPrefix = "/rest/v1/"

// maxLogBody limits how much of an upstream error body is logged.
const maxLogBody = 4 * 1024

// Fetcher issues one filtered read against a backing resource.
type Fetcher interface {
	Fetch(ctx context.Context, resource, query string) (any, error)
}

// Client issues authenticated GETs against {base}/rest/v1/{resource}.
type Client struct {
	// base is the project URL without the REST prefix.
	base *url.URL
	// client performs outbound HTTP requests with tuned transport settings.
	client *http.Client
	// creds injects the bearer token and API key.
	creds *auth.Credentials
	// retryBackoff is the pause before the single retry.
	retryBackoff time.Duration
	logger       zerolog.Logger
}

// New constructs a Client backed by an http.Client configured with
// connection pooling defaults and the per-call timeout from cfg.
func New(cfg config.Config) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, // nolint:gosec -- opt-in for development scenarios
		},
	}

	return &Client{
		base: cloneURL(cfg.SupabaseURL),
		client: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		creds:        auth.NewCredentials(cfg.SupabaseKey),
		retryBackoff: cfg.RetryBackoff,
		logger:       log.With().Str("component", "source").Logger(),
	}
}

// Fetch GETs resource with the pre-built filter query and decodes the JSON
// body. Transient transport failures are retried once; HTTP error statuses
// are not.
func (c *Client) Fetch(ctx context.Context, resource, query string) (any, error) {
	target := c.resourceURL(resource, query)
	event := c.logger.With().Str("resource", resource).Str("query", query).Logger()
	start := time.Now()

	resp, err := c.get(ctx, target)
	if err != nil && isTransient(ctx, err) {
		event.Warn().Err(err).Dur("backoff", c.retryBackoff).Msg("transient upstream failure; retrying once")
		if waitErr := sleep(ctx, c.retryBackoff); waitErr == nil {
			resp, err = c.get(ctx, target)
		}
	}
	if err != nil {
		return nil, &Error{
			Kind:     KindUnavailable,
			Resource: resource,
			Timeout:  isTimeout(err),
			Err:      err,
		}
	}

	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			event.Error().Err(closeErr).Msg("close upstream response body failed")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxLogBody))
		if readErr != nil {
			event.Error().Err(readErr).Int("status", resp.StatusCode).Msg("failed to read upstream error body")
		} else {
			event.Warn().Int("status", resp.StatusCode).Bytes("upstream_body", payload).Msg("upstream returned error")
		}
		return nil, &Error{
			Kind:     KindUnavailable,
			Resource: resource,
			Status:   resp.StatusCode,
			Reason:   http.StatusText(resp.StatusCode),
			Timeout:  resp.StatusCode == http.StatusGatewayTimeout,
			Err:      fmt.Errorf("upstream status %d", resp.StatusCode),
		}
	}

	data, err := decode(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindDecode, Resource: resource, Status: resp.StatusCode, Err: err}
	}

	event.Debug().Dur("duration", time.Since(start)).Msg("upstream fetch complete")
	return data, nil
}

func (c *Client) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	if err := c.creds.Attach(req); err != nil {
		return nil, fmt.Errorf("authenticate request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("perform upstream request: %w", err)
	}
	return resp, nil
}

// resourceURL resolves {base}/rest/v1/{resource}?{query}.
func (c *Client) resourceURL(resource, query string) string {
	u := cloneURL(c.base)
	u.Path = strings.TrimRight(u.Path, "/") + restPrefix + url.PathEscape(resource)
	u.RawPath = ""
	u.RawQuery = query
	return u.String()
}

// decode parses a single JSON value, keeping numbers exact.
func decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

// isTransient reports whether err is worth one more attempt. Cancellation
// of the caller's context never is.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if isTimeout(err) {
		return true
	}
	switch {
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTemporary || dnsErr.IsTimeout
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// cloneURL makes a shallow copy of the provided URL pointer.
func cloneURL(u *url.URL) *url.URL {
	if u == nil {
		return &url.URL{}
	}
	clone := *u
	return &clone
}
