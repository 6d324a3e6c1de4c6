// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/config"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/entity"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/estimate"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/filter"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/relation"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/shape"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/source"
)

const serviceName = "CustomGPT-Optimized Supabase Proxy API"

// Proxy serves the entity and relationship routes.
type Proxy struct {
	// cfg keeps limits and mode toggles.
	cfg config.Config
	// catalog is the per-entity configuration table.
	catalog *entity.Catalog
	// fetcher reads from the backing store.
	fetcher source.Fetcher
	// shaper shapes list responses.
	shaper shape.Shaper
	// resolver assembles relationship views.
	resolver *relation.Resolver
	// filterOpts carries the limit and mode toggles for translation.
	filterOpts filter.Options
	// logger emits structured logs for observability.
	logger zerolog.Logger
	// handler is the router wrapped in middleware.
	handler http.Handler
}

// New constructs a Proxy that reads from the Supabase project in cfg.
func New(cfg config.Config, catalog *entity.Catalog) (http.Handler, error) {
	p, err := newProxy(cfg, catalog, source.New(cfg))
	if err != nil {
		return nil, err
	}
	return p, nil
}

func newProxy(cfg config.Config, catalog *entity.Catalog, fetcher source.Fetcher) (*Proxy, error) {
	if catalog == nil {
		return nil, errors.New("entity catalog is required")
	}
	listProfile, err := entity.ParseProfile(cfg.ListProfile)
	if err != nil {
		return nil, fmt.Errorf("list profile: %w", err)
	}
	relationProfile, err := entity.ParseProfile(cfg.RelationProfile)
	if err != nil {
		return nil, fmt.Errorf("relation profile: %w", err)
	}

	p := &Proxy{
		cfg:     cfg,
		catalog: catalog,
		fetcher: fetcher,
		shaper:  shape.Shaper{Catalog: catalog, Profile: listProfile},
		resolver: relation.New(fetcher, catalog, relationProfile, relation.Options{
			Limit:  cfg.Limits.MaxRecords,
			Escape: cfg.Modes.EscapeFilters,
		}),
		filterOpts: filter.Options{
			MaxRecords:      cfg.Limits.MaxRecords,
			DefaultOrdering: cfg.Modes.DefaultOrdering,
			Escape:          cfg.Modes.EscapeFilters,
		},
		logger: log.With().Str("component", "proxy").Logger(),
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{HeaderRequestID},
	})
	p.handler = withRequestLogging(p.logger, c.Handler(withRecovery(p.routes())))

	return p, nil
}

// ServeHTTP dispatches through the middleware chain.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// Endpoints lists the entity routes in catalog order.
func (p *Proxy) Endpoints() []string {
	out := make([]string, 0, len(p.catalog.All()))
	for _, e := range p.catalog.All() {
		out = append(out, entityPath(e))
	}
	return out
}

func (p *Proxy) routes() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", p.handleRoot).Methods(http.MethodGet)
	router.HandleFunc("/healthz", p.handleHealth).Methods(http.MethodGet)
	for _, e := range p.catalog.All() {
		router.HandleFunc(entityPath(e), p.handleEntity(e)).Methods(http.MethodGet)
	}
	router.HandleFunc("/api/relationships/{type}", p.handleRelationships).Methods(http.MethodGet)

	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found: "+r.URL.Path)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return router
}

func entityPath(e *entity.Entity) string {
	return "/api/" + e.Slug
}

// envelope wraps list responses when ResponseEnvelope is on.
type envelope struct {
	Data any  `json:"data"`
	Meta meta `json:"meta"`
}

type meta struct {
	Count           int    `json:"count"`
	EstimatedSize   string `json:"estimated_size"`
	EstimatedTokens int    `json:"estimated_tokens"`
	WithinLimits    bool   `json:"within_limits"`
}

// handleEntity runs translate, fetch, shape and estimate for one table.
func (p *Proxy) handleEntity(e *entity.Entity) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		event := zerolog.Ctx(r.Context())

		query := filter.Translate(e, filter.Params(r.URL.Query()), p.filterOpts)
		data, err := p.fetcher.Fetch(r.Context(), e.Resource, query.String())
		if err != nil {
			p.writeFailure(w, r, err)
			return
		}

		shaped := p.shaper.Shape(string(e.Kind), data)
		if !p.cfg.Modes.ResponseEnvelope {
			writeJSON(w, http.StatusOK, shaped)
			return
		}

		size := estimate.Of(shaped, p.cfg.Limits.MaxResponseBytes)
		if !size.WithinLimits {
			event.Warn().
				Str("entity", string(e.Kind)).
				Int("bytes", size.Bytes).
				Msg("response exceeds size budget")
		}
		writeJSON(w, http.StatusOK, envelope{
			Data: shaped,
			Meta: meta{
				Count:           count(shaped),
				EstimatedSize:   size.KB(),
				EstimatedTokens: size.Tokens,
				WithinLimits:    size.WithinLimits,
			},
		})
	}
}

// handleRelationships resolves /api/relationships/{type}?{type}_id=...
func (p *Proxy) handleRelationships(w http.ResponseWriter, r *http.Request) {
	typ, err := relation.ParseType(mux.Vars(r)["type"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	res, err := p.resolver.Resolve(r.Context(), typ, r.URL.Query().Get(typ.IDParam()))
	if err != nil {
		p.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (p *Proxy) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRoot describes the service.
func (p *Proxy) handleRoot(w http.ResponseWriter, _ *http.Request) {
	relationships := make([]string, 0, len(relation.Types))
	for _, t := range relation.Types {
		relationships = append(relationships, fmt.Sprintf("/api/relationships/%s?%s=<id>", t, t.IDParam()))
	}

	limits := p.cfg.Limits
	writeJSON(w, http.StatusOK, map[string]any{
		"message": serviceName,
		"limits": map[string]any{
			"max_response_size":        humanize.IBytes(uint64(max(limits.MaxResponseBytes, 0))),
			"max_tokens":               humanize.Comma(int64(limits.MaxTokens)),
			"max_records_per_response": limits.MaxRecords,
			"max_text_length":          limits.MaxTextLength,
		},
		"endpoints":              p.Endpoints(),
		"relationship_endpoints": relationships,
		"entities":               p.catalog.Kinds(),
		"search_examples": []string{
			"?search=revenue&limit=5",
			"?account=Adobe&status=completed",
			"?date_from=2024-01-01&limit=3",
		},
		"modes": map[string]any{
			"response_envelope": p.cfg.Modes.ResponseEnvelope,
			"default_ordering":  p.cfg.Modes.DefaultOrdering,
			"escape_filters":    p.cfg.Modes.EscapeFilters,
			"gateway_status":    p.cfg.Modes.GatewayStatus,
			"list_profile":      p.shaper.Profile,
		},
		"note": "Optimized for CustomGPT payload limits",
	})
}

// writeFailure reports a failed lookup. Every failure is a 500 unless
// gateway statuses are enabled.
func (p *Proxy) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := p.failureStatus(err)
	event := zerolog.Ctx(r.Context()).Error()
	if errors.Is(err, context.Canceled) {
		event = zerolog.Ctx(r.Context()).Debug()
	}
	event.Err(err).Int("status", status).Msg("backing store request failed")
	writeError(w, status, err.Error())
}

func (p *Proxy) failureStatus(err error) int {
	if !p.cfg.Modes.GatewayStatus {
		return http.StatusInternalServerError
	}
	var srcErr *source.Error
	if !errors.As(err, &srcErr) {
		return http.StatusInternalServerError
	}
	if srcErr.Timeout {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

func count(v any) int {
	if items, ok := v.([]any); ok {
		return len(items)
	}
	return 0
}

// writeJSON writes v without HTML escaping so the body matches the size
// estimate.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response failed")
		writeError(w, http.StatusInternalServerError, "encode response failed")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Debug().Err(err).Msg("write response failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = http.StatusText(status)
	}
	body, _ := json.Marshal(map[string]string{"error": message})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}
