// Package app wires the telemetry source, context resolver and analyst service
// shared by the API server, the worker and busctl.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/analytics"
	"github.com/stingsense/stingsense/internal/busdata"
	"github.com/stingsense/stingsense/internal/card"
	"github.com/stingsense/stingsense/internal/completion"
	"github.com/stingsense/stingsense/internal/completion/openai"
	"github.com/stingsense/stingsense/internal/database"
	"github.com/stingsense/stingsense/internal/geocontext"
	"github.com/stingsense/stingsense/internal/provider/resilience"
	"github.com/stingsense/stingsense/internal/query"
)

// Telemetry source kinds.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
)

// ErrUnknownSource is returned for an unsupported TELEMETRY_SOURCE.
var ErrUnknownSource = errors.New("unknown telemetry source")

// Config describes how to assemble the pipeline.
type Config struct {
	// Source is csv or postgres. Default: csv.
	Source  string
	CSVPath string

	// RouteID optionally restricts the postgres source to one route.
	RouteID string

	// LandmarksPath is an optional YAML file overriding the built-in context tables.
	LandmarksPath string

	// Timezone overrides the campus timezone from the tables.
	Timezone string

	Database   database.Config
	Analyst    analyst.Config
	Completion openai.ClientConfig
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	return Config{
		Source:        getEnvOrDefault("TELEMETRY_SOURCE", SourceCSV),
		CSVPath:       getEnvOrDefault("TELEMETRY_CSV_PATH", "data/telemetry.csv"),
		RouteID:       os.Getenv("TELEMETRY_ROUTE_ID"),
		LandmarksPath: os.Getenv("LANDMARKS_PATH"),
		Timezone:      os.Getenv("CAMPUS_TIMEZONE"),
		Database:      database.ConfigFromEnv(),
		Analyst:       analyst.ConfigFromEnv(),
		Completion:    openai.ConfigFromEnv(),
	}
}

// Pipeline holds the assembled components. Close releases the database pool
// when the postgres source is used.
type Pipeline struct {
	Dataset  *busdata.Dataset
	Resolver *geocontext.Resolver
	Analyzer *analytics.Analyzer
	Router   *query.Router
	Analyst  *analyst.Service
	Registry *resilience.Registry

	pool *pgxpool.Pool
}

// Close releases held resources.
func (p *Pipeline) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Options carries the optional collaborators for Build.
type Options struct {
	Registry *resilience.Registry
	Metrics  *analyst.Metrics
	Logger   zerolog.Logger
}

// NewResolver builds the context resolver from the optional landmarks file.
func NewResolver(cfg Config) (*geocontext.Resolver, error) {
	geoCfg := geocontext.DefaultConfig()
	if cfg.LandmarksPath != "" {
		var err error
		geoCfg, err = geocontext.LoadConfigFile(cfg.LandmarksPath)
		if err != nil {
			return nil, fmt.Errorf("loading landmarks: %w", err)
		}
	}
	if cfg.Timezone != "" {
		geoCfg.Timezone = cfg.Timezone
		geoCfg.Location = nil
	}
	return geocontext.NewResolver(geoCfg)
}

// LoadDataset opens the configured source and loads a snapshot. The returned
// pool is nil unless the postgres source is used.
func LoadDataset(ctx context.Context, cfg Config, logger zerolog.Logger) (*busdata.Dataset, *pgxpool.Pool, error) {
	switch cfg.Source {
	case "", SourceCSV:
		ds, err := busdata.LoadDataset(ctx, busdata.NewCSVSource(cfg.CSVPath, logger))
		return ds, nil, err
	case SourcePostgres:
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		ds, err := busdata.LoadDataset(ctx, busdata.NewPostgresSource(pool, cfg.RouteID))
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return ds, pool, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Source)
	}
}

// Build loads the telemetry and assembles the analyst service. A missing
// completion credential is not an error: the service reports itself as not
// configured and every question fails with a configuration error.
func Build(ctx context.Context, cfg Config, opts Options) (*Pipeline, error) {
	logger := opts.Logger

	resolver, err := NewResolver(cfg)
	if err != nil {
		return nil, err
	}

	ds, pool, err := LoadDataset(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	p := &Pipeline{Dataset: ds, Resolver: resolver, pool: pool}

	chunkCfg, err := cfg.Analyst.ChunkingConfig()
	if err != nil {
		p.Close()
		return nil, err
	}
	store, err := cfg.Analyst.NewCache()
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("creating response cache: %w", err)
	}

	registry := opts.Registry
	if registry == nil {
		registry = resilience.NewRegistry()
	}
	p.Registry = registry

	completionCfg := cfg.Completion
	completionCfg.Registry = registry
	completionCfg.Logger = logger
	client := openai.NewClient(completionCfg)

	var provider completion.Provider
	if client.Configured() {
		provider = client
	} else {
		logger.Warn().Msg("completion provider not configured - questions will fail until COMPLETION_API_KEY is set")
	}

	p.Analyzer = analytics.NewAnalyzer(resolver, analytics.DefaultConfig())
	p.Router = query.NewRouter(query.RouterConfig{
		Analyzer: p.Analyzer,
		Logger:   logger,
	})

	p.Analyst, err = analyst.NewService(analyst.ServiceConfig{
		Dataset:         ds,
		Router:          p.Router,
		Formatter:       card.NewFormatter(cfg.Analyst.CardConfig()),
		Provider:        provider,
		Chunking:        chunkCfg,
		Model:           completionCfg.Model,
		MaxOutputTokens: completionCfg.MaxOutputTokens,
		Cache:           store,
		Metrics:         opts.Metrics,
		Logger:          logger,
	})
	if err != nil {
		p.Close()
		return nil, err
	}

	logger.Info().
		Str("source", ds.Source()).
		Int("events", ds.Len()).
		Bool("completion_configured", provider != nil).
		Msg("pipeline ready")
	return p, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
