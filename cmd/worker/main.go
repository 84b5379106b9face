// Package main provides the entrypoint for the Sting Sense background worker.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/app"
	"github.com/stingsense/stingsense/internal/telemetry"
	"github.com/stingsense/stingsense/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "stingsense-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting Sting Sense worker")

	// Worker also exposes a health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	pipelineMetrics, err := analyst.NewMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pipeline metrics")
	}
	pipeline, err := app.Build(ctx, app.ConfigFromEnv(), app.Options{
		Metrics: pipelineMetrics,
		Logger:  log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build telemetry pipeline")
	}
	defer pipeline.Close()

	cfg := worker.ConfigFromEnv()
	warmJob := worker.NewWarmJob(worker.WarmJobConfig{
		Config: cfg.Warm,
		Asker:  pipeline.Analyst,
		Logger: log,
	})

	// Without a subscription the worker runs a single warm pass, which lets
	// it double as a scheduled job.
	if cfg.ProjectID == "" {
		log.Warn().Msg("PUBSUB_PROJECT_ID not set - running one cache warm pass")
		result := warmJob.Run(ctx)
		log.Info().
			Int("successful", result.Successful).
			Int("failed", result.Failed).
			Msg("warm pass finished")
		return
	}

	client, err := worker.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub client")
	}
	defer client.Close()

	var publisher worker.Publisher
	if cfg.ResultTopic != "" {
		topic := worker.NewTopicPublisher(client, cfg.ResultTopic)
		defer topic.Stop()
		publisher = topic
	}

	processor := worker.NewProcessor(worker.ProcessorConfig{
		Asker:       pipeline.Analyst,
		Warm:        warmJob,
		Publisher:   publisher,
		MaxAttempts: cfg.MaxAttempts,
		Logger:      log,
	})
	handler := worker.NewPubSubHandler(worker.PubSubConfig{
		Client:         client,
		Subscription:   cfg.Subscription,
		MaxOutstanding: cfg.MaxOutstanding,
		Processor:      processor,
		Logger:         log,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"status":     "healthy",
			"version":    Version,
			"events":     pipeline.Dataset.Len(),
			"configured": pipeline.Analyst.Configured(),
			"warm":       warmJob.MetricsSnapshot(),
			"providers":  pipeline.Registry.GetAllHealth(),
		})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	go func() {
		if err := handler.Start(ctx); err != nil {
			log.Error().Err(err).Msg("subscriber stopped")
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
