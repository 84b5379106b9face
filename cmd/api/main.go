// Package main provides the entrypoint for the Sting Sense API server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/api"
	"github.com/stingsense/stingsense/internal/api/middleware"
	"github.com/stingsense/stingsense/internal/app"
	"github.com/stingsense/stingsense/internal/provider/resilience"
	"github.com/stingsense/stingsense/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "stingsense-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Sting Sense API")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create HTTP metrics")
	}
	pipelineMetrics, err := analyst.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pipeline metrics")
	}

	// Load telemetry and assemble the analyst. Without a snapshot the server
	// still starts so readiness can report the failure.
	registry := resilience.NewRegistry()
	pipeline, err := app.Build(ctx, app.ConfigFromEnv(), app.Options{
		Registry: registry,
		Metrics:  pipelineMetrics,
		Logger:   log,
	})
	var svc *analyst.Service
	if err != nil {
		log.Error().Err(err).Msg("telemetry pipeline unavailable - only ops endpoints will be served")
	} else {
		defer pipeline.Close()
		svc = pipeline.Analyst
	}

	router := api.NewRouter(api.RouterConfig{
		Version:     Version,
		BuildTime:   BuildTime,
		Logger:      log,
		ServiceName: serviceName,
		Metrics:     metrics,
		Analyst:     svc,
		Registry:    registry,
		RequireTLS:  os.Getenv("REQUIRE_TLS") == "true",
	})

	// Raw mode fans out over many completion calls, so the write timeout
	// leaves room for a full chunked answer.
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
