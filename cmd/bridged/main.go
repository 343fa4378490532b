// SPDX-License-Identifier: MIT

// Command bridged serves the streaming view-model runtime over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/streambridge/core/internal/analytics"
	"github.com/streambridge/core/internal/bridge"
	"github.com/streambridge/core/internal/config"
	"github.com/streambridge/core/internal/log"
	"github.com/streambridge/core/internal/runtime"
	"github.com/streambridge/core/internal/storage"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Safe defaults until the real config is loaded.
	log.Configure(log.Config{
		Level:   "info",
		Service: "bridged",
		Version: version,
	})
	logger := log.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Config path: explicit via --config, else ${BRIDGE_STORE_PATH}/config.yaml
	// when it exists.
	effectiveConfigPath := strings.TrimSpace(*configPath)
	if effectiveConfigPath == "" {
		dataDir := strings.TrimSpace(config.ParseString("BRIDGE_STORE_PATH", ""))
		if dataDir != "" {
			autoPath := filepath.Join(dataDir, "config.yaml")
			if _, err := os.Stat(autoPath); err == nil {
				effectiveConfigPath = autoPath
			}
		}
	}

	cfg, err := config.NewLoader(effectiveConfigPath).Load()
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("config_path", effectiveConfigPath).
			Msg("failed to load configuration")
	}

	log.Configure(log.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: version,
	})
	if effectiveConfigPath != "" {
		logger.Info().Str("path", effectiveConfigPath).Msg("loaded configuration from file")
	} else {
		logger.Info().Msg("loaded configuration from environment and defaults")
	}

	store, err := storage.Open(storage.Config{
		Backend:       cfg.Store.Backend,
		Path:          cfg.Store.Path,
		RedisAddr:     cfg.Store.Redis.Addr,
		RedisPassword: cfg.Store.Redis.Password,
		RedisDB:       cfg.Store.Redis.DB,
	})
	if err != nil {
		logger.Fatal().
			Err(err).
			Str(log.FieldBackend, cfg.Store.Backend).
			Msg("failed to open bucket store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn().Err(err).Msg("store close failed")
		}
	}()
	logger.Info().
		Str(log.FieldBackend, cfg.Store.Backend).
		Str("path", cfg.Store.Path).
		Msg("bucket store opened")

	emitter := analytics.NewEmitter(cfg.AnalyticsBuffer, nil)
	defer emitter.Close()

	manager := runtime.NewManager(store,
		runtime.WithAnalytics(emitter),
		runtime.WithEventBuffer(cfg.EventBuffer),
	)
	defer manager.Close()

	server := bridge.NewServer(manager, bridge.Options{RateLimit: cfg.RateLimit})

	httpServer := &http.Server{
		Addr:        cfg.ListenAddr,
		Handler:     server.Router(),
		ReadTimeout: cfg.Server.ReadTimeout,
		// WriteTimeout stays unset: /api/v1/events streams indefinitely.
		IdleTimeout: cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("bridge listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown incomplete")
	}
	logger.Info().Msg("bridged stopped")
}
