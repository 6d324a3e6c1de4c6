// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envPort                   = "PORT"
	envListenAddr             = "PROXY_LISTEN_ADDR"
	envSupabaseURL            = "SUPABASE_URL"
	envSupabaseKey            = "SUPABASE_ANON_KEY"
	envRequestTimeout         = "SUPABASE_TIMEOUT"
	envRetryBackoff           = "SUPABASE_RETRY_BACKOFF"
	envInsecureSkipVerify     = "SUPABASE_INSECURE"
	envLogLevel               = "PROXY_LOG_LEVEL"
	envMaxRecords             = "PROXY_MAX_RECORDS"
	envMaxResponseBytes       = "PROXY_MAX_RESPONSE_BYTES"
	envMaxTokens              = "PROXY_MAX_TOKENS"
	envMaxTextLength          = "PROXY_MAX_TEXT_LENGTH"
	envDefaultOrdering        = "PROXY_DEFAULT_ORDERING"
	envEscapeFilters          = "PROXY_ESCAPE_FILTERS"
	envResponseEnvelope       = "PROXY_RESPONSE_ENVELOPE"
	envGatewayStatus          = "PROXY_GATEWAY_STATUS"
	envListProfile            = "PROXY_LIST_PROFILE"
	envRelationProfile        = "PROXY_RELATION_PROFILE"
	envEntityFile             = "PROXY_ENTITY_FILE"
	envCORSOrigins            = "PROXY_CORS_ORIGINS"
	envServerReadTimeout      = "PROXY_SERVER_READ_TIMEOUT"
	envServerWriteTimeout     = "PROXY_SERVER_WRITE_TIMEOUT"
	envServerIdleTimeout      = "PROXY_SERVER_IDLE_TIMEOUT"
	envGracefulShutdown       = "PROXY_GRACEFUL_SHUTDOWN"
	defaultPort               = "3000"
	defaultRequestTimeout     = 10 * time.Second
	defaultRetryBackoff       = 200 * time.Millisecond
	defaultLogLevel           = "info"
	defaultMaxRecords         = 10
	defaultMaxResponseBytes   = 2 * 1024 * 1024
	defaultMaxTokens          = 16000
	defaultMaxTextLength      = 150
	defaultListProfile        = "compact"
	defaultRelationProfile    = "detailed"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
	defaultServerIdleTimeout  = 120 * time.Second
	defaultGracefulShutdown   = 10 * time.Second
)

// Limits are the payload budgets of the downstream LLM client.
type Limits struct {
	MaxRecords       int
	MaxResponseBytes int
	MaxTokens        int
	MaxTextLength    int
}

// Modes toggle behaviour that differed between historical deployments.
type Modes struct {
	// DefaultOrdering applies the entity default order when order_by is absent.
	DefaultOrdering bool
	// EscapeFilters escapes pattern metacharacters inside ilike values.
	EscapeFilters bool
	// ResponseEnvelope wraps list results in {data, meta}.
	ResponseEnvelope bool
	// GatewayStatus reports backing-store failures as 502/504 instead of 500.
	GatewayStatus bool
}

// Config captures runtime settings for the proxy.
type Config struct {
	ListenAddr              string
	SupabaseURL             *url.URL
	SupabaseKey             string
	RequestTimeout          time.Duration
	RetryBackoff            time.Duration
	InsecureSkipVerify      bool
	LogLevel                string
	Limits                  Limits
	Modes                   Modes
	ListProfile             string
	RelationProfile         string
	EntityFile              string
	CORSOrigins             []string
	ServerReadTimeout       time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	GracefulShutdownTimeout time.Duration
}

// LoadDotEnv populates the environment from the given files (or ./.env when
// none are given). Missing files are ignored; variables already set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env files: %w", err)
	}
	return nil
}

// Load reads configuration from environment variables and validates required values.
func Load() (Config, error) {
	baseRaw := strings.TrimSpace(os.Getenv(envSupabaseURL))
	if baseRaw == "" {
		return Config{}, errors.New("SUPABASE_URL is required")
	}

	base, err := url.Parse(strings.TrimRight(baseRaw, "/"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid SUPABASE_URL: %w", err)
	}
	if !base.IsAbs() {
		return Config{}, errors.New("SUPABASE_URL must be absolute (scheme://host)")
	}

	key := strings.TrimSpace(os.Getenv(envSupabaseKey))
	if key == "" {
		return Config{}, errors.New("SUPABASE_ANON_KEY is required")
	}

	listenAddr := getString(envListenAddr, "")
	if listenAddr == "" {
		listenAddr = ":" + getString(envPort, defaultPort)
	}

	cfg := Config{
		ListenAddr:         listenAddr,
		SupabaseURL:        base,
		SupabaseKey:        key,
		RequestTimeout:     getDuration(envRequestTimeout, defaultRequestTimeout),
		RetryBackoff:       getDuration(envRetryBackoff, defaultRetryBackoff),
		InsecureSkipVerify: getBool(envInsecureSkipVerify, false),
		LogLevel:           strings.ToLower(getString(envLogLevel, defaultLogLevel)),
		Limits: Limits{
			MaxRecords:       getInt(envMaxRecords, defaultMaxRecords),
			MaxResponseBytes: getInt(envMaxResponseBytes, defaultMaxResponseBytes),
			MaxTokens:        getInt(envMaxTokens, defaultMaxTokens),
			MaxTextLength:    getInt(envMaxTextLength, defaultMaxTextLength),
		},
		Modes: Modes{
			DefaultOrdering:  getBool(envDefaultOrdering, false),
			EscapeFilters:    getBool(envEscapeFilters, false),
			ResponseEnvelope: getBool(envResponseEnvelope, true),
			GatewayStatus:    getBool(envGatewayStatus, false),
		},
		ListProfile:             strings.ToLower(getString(envListProfile, defaultListProfile)),
		RelationProfile:         strings.ToLower(getString(envRelationProfile, defaultRelationProfile)),
		EntityFile:              getString(envEntityFile, ""),
		CORSOrigins:             getList(envCORSOrigins, []string{"*"}),
		ServerReadTimeout:       getDuration(envServerReadTimeout, defaultServerReadTimeout),
		ServerWriteTimeout:      getDuration(envServerWriteTimeout, defaultServerWriteTimeout),
		ServerIdleTimeout:       getDuration(envServerIdleTimeout, defaultServerIdleTimeout),
		GracefulShutdownTimeout: getDuration(envGracefulShutdown, defaultGracefulShutdown),
	}

	if cfg.Limits.MaxRecords < 1 {
		return Config{}, fmt.Errorf("%s must be positive, got %d", envMaxRecords, cfg.Limits.MaxRecords)
	}

	return cfg, nil
}

// Defaults returns a Config with every optional value at its default. The
// caller still has to supply the backing-store URL and key.
func Defaults() Config {
	return Config{
		ListenAddr:     ":" + defaultPort,
		RequestTimeout: defaultRequestTimeout,
		RetryBackoff:   defaultRetryBackoff,
		LogLevel:       defaultLogLevel,
		Limits: Limits{
			MaxRecords:       defaultMaxRecords,
			MaxResponseBytes: defaultMaxResponseBytes,
			MaxTokens:        defaultMaxTokens,
			MaxTextLength:    defaultMaxTextLength,
		},
		Modes:                   Modes{ResponseEnvelope: true},
		ListProfile:             defaultListProfile,
		RelationProfile:         defaultRelationProfile,
		CORSOrigins:             []string{"*"},
		ServerReadTimeout:       defaultServerReadTimeout,
		ServerWriteTimeout:      defaultServerWriteTimeout,
		ServerIdleTimeout:       defaultServerIdleTimeout,
		GracefulShutdownTimeout: defaultGracefulShutdown,
	}
}

func getString(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getList(key string, fallback []string) []string {
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
