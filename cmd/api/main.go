package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/clinicalrag/internal/api/handlers"
	"github.com/zatekoja/clinicalrag/internal/api/routes"
	"github.com/zatekoja/clinicalrag/internal/application/services"
	"github.com/zatekoja/clinicalrag/internal/bootstrap"
	"github.com/zatekoja/clinicalrag/internal/infrastructure/observability"
	"github.com/zatekoja/clinicalrag/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	observability.InitLogger(cfg.OTEL.ServiceName+"-api", cfg.Log.Env, cfg.Log.Level)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized successfully")
		}
	}

	container := bootstrap.New(cfg)
	defer container.Close()

	indexService, err := container.IndexService(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize index service")
	}

	// Serve without an index so /health works; diagnose requests get 503
	// until one is built.
	handle := services.NewIndexHandle(nil)
	if searcher, err := indexService.OpenIndex(ctx); err != nil {
		log.Warn().Err(err).Str("index_dir", cfg.Paths.IndexDir).Msg("Case index unavailable")
	} else {
		handle.Swap(searcher)
	}

	if bus := container.EventBus(ctx); bus != nil {
		go func() {
			if err := services.WatchIndexUpdates(ctx, bus, indexService, handle); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("Index update watcher stopped")
			}
		}()
	}

	diagnosis, err := container.DiagnosisService(handle)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize diagnosis service")
	}

	router := routes.NewRouter(handlers.NewDiagnosisHandler(diagnosis), cfg.Server.AllowedOrigins)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}
