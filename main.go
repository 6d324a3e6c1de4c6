// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/config"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/entity"
	"github.com/rajkumarsaambientai/supabase-proxy-api/pkg/proxy"
)

var envFiles []string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "supabase-proxy",
		Short: "Read-only Supabase proxy shaped for payload-constrained LLM clients",
		Long: `supabase-proxy forwards read-only queries to a Supabase REST API and
reshapes the rows into small, field-limited JSON payloads.

Configuration is read from the environment (and an optional .env file).
SUPABASE_URL and SUPABASE_ANON_KEY are required to serve.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
	root.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "Env files to load before reading configuration (default .env)")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP proxy (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe()
			},
		},
		newTranslateCmd(),
		newEntitiesCmd(),
	)
	return root
}

// loadCatalog returns the built-in catalog with the overrides file applied.
func loadCatalog(path string) (*entity.Catalog, error) {
	catalog := entity.Default()
	if path == "" {
		return catalog, nil
	}
	overrides, err := entity.LoadOverrides(path)
	if err != nil {
		return nil, err
	}
	return catalog.Apply(overrides)
}

func runServe() error {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.Logger = log.Level(level)

	catalog, err := loadCatalog(cfg.EntityFile)
	if err != nil {
		return fmt.Errorf("load entity configuration: %w", err)
	}

	handler, err := proxy.New(cfg, catalog)
	if err != nil {
		return fmt.Errorf("construct proxy: %w", err)
	}

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	go func() {
		log.Info().
			Str("listen_addr", cfg.ListenAddr).
			Str("upstream", cfg.SupabaseURL.String()).
			Int("max_records", cfg.Limits.MaxRecords).
			Int("max_response_bytes", cfg.Limits.MaxResponseBytes).
			Strs("endpoints", handler.(*proxy.Proxy).Endpoints()).
			Msg("starting supabase proxy")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("proxy server exited unexpectedly")
		}
	}()

	waitForShutdown(context.Background(), server, cfg.GracefulShutdownTimeout)
	return nil
}

func waitForShutdown(ctx context.Context, srv *http.Server, timeout time.Duration) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop

	log.Info().Msg("shutting down supabase proxy")

	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed; forcing close")
		if closeErr := srv.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("forced close failed")
		}
	}

	log.Info().Msg("proxy stopped")
}
