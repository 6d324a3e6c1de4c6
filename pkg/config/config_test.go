// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv(envSupabaseURL, "https://project.supabase.co/")
	t.Setenv(envSupabaseKey, "anon-key")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.ListenAddr)
	assert.Equal(t, "https://project.supabase.co", cfg.SupabaseURL.String())
	assert.Equal(t, "anon-key", cfg.SupabaseKey)
	assert.Equal(t, Limits{MaxRecords: 10, MaxResponseBytes: 2097152, MaxTokens: 16000, MaxTextLength: 150}, cfg.Limits)
	assert.Equal(t, Modes{ResponseEnvelope: true}, cfg.Modes)
	assert.Equal(t, "compact", cfg.ListProfile)
	assert.Equal(t, "detailed", cfg.RelationProfile)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, defaultRequestTimeout, cfg.RequestTimeout)

	defaults := Defaults()
	assert.Equal(t, defaults.Limits, cfg.Limits)
	assert.Equal(t, defaults.Modes, cfg.Modes)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv(envPort, "8081")
	t.Setenv(envMaxRecords, "25")
	t.Setenv(envRequestTimeout, "3s")
	t.Setenv(envDefaultOrdering, "true")
	t.Setenv(envEscapeFilters, "1")
	t.Setenv(envResponseEnvelope, "false")
	t.Setenv(envGatewayStatus, "true")
	t.Setenv(envCORSOrigins, "https://a.example, https://b.example,")
	t.Setenv(envLogLevel, "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.ListenAddr)
	assert.Equal(t, 25, cfg.Limits.MaxRecords)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.Equal(t, Modes{DefaultOrdering: true, EscapeFilters: true, ResponseEnvelope: false, GatewayStatus: true}, cfg.Modes)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "debug", cfg.LogLevel)

	t.Setenv(envListenAddr, "127.0.0.1:9000")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	setRequired(t)
	t.Setenv(envMaxRecords, "lots")
	t.Setenv(envRequestTimeout, "soon")
	t.Setenv(envResponseEnvelope, "maybe")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultMaxRecords, cfg.Limits.MaxRecords)
	assert.Equal(t, defaultRequestTimeout, cfg.RequestTimeout)
	assert.True(t, cfg.Modes.ResponseEnvelope)
}

func TestLoadValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"missing url":      {envSupabaseKey: "k"},
		"relative url":     {envSupabaseURL: "project.supabase.co", envSupabaseKey: "k"},
		"missing key":      {envSupabaseURL: "https://project.supabase.co"},
		"non-positive max": {envSupabaseURL: "https://project.supabase.co", envSupabaseKey: "k", envMaxRecords: "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(envSupabaseURL, "")
			t.Setenv(envSupabaseKey, "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("PROXY_TEST_DOTENV=from-file\nPROXY_TEST_PRESET=from-file\n"), 0o600))

	t.Setenv("PROXY_TEST_PRESET", "from-env")
	t.Cleanup(func() { os.Unsetenv("PROXY_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("PROXY_TEST_DOTENV"))
	assert.Equal(t, "from-env", os.Getenv("PROXY_TEST_PRESET"))

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "absent.env")))
}
