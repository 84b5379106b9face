package app_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/app"
	"github.com/stingsense/stingsense/internal/provider/resilience"
)

const sampleCSV = `timestamp,latitude,longitude,behavior,instability_score,cluster
2024-10-24T08:00:00Z,33.7771,-84.3962,Aggressive,0.9,1
2024-10-24T08:01:00Z,33.7772,-84.3961,Calm,0.1,0
2024-10-24T08:02:00Z,33.7773,-84.3960,Calm,0.2,0
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig(t *testing.T) app.Config {
	t.Helper()
	cfg := app.ConfigFromEnv()
	cfg.Source = app.SourceCSV
	cfg.CSVPath = writeFile(t, "telemetry.csv", sampleCSV)
	cfg.LandmarksPath = ""
	cfg.Timezone = ""
	cfg.Completion.APIKey = ""
	return cfg
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("TELEMETRY_SOURCE", "postgres")
	t.Setenv("TELEMETRY_ROUTE_ID", "red")
	t.Setenv("CAMPUS_TIMEZONE", "UTC")

	cfg := app.ConfigFromEnv()
	assert.Equal(t, app.SourcePostgres, cfg.Source)
	assert.Equal(t, "red", cfg.RouteID)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "data/telemetry.csv", cfg.CSVPath)
}

func TestBuild_WithoutCompletionKey(t *testing.T) {
	registry := resilience.NewRegistry()
	p, err := app.Build(context.Background(), testConfig(t), app.Options{
		Registry: registry,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 3, p.Dataset.Len())
	assert.Same(t, registry, p.Registry)
	assert.False(t, p.Analyst.Configured())

	_, err = p.Analyst.Ask(context.Background(), analyst.Query{Text: "where is aggressive driving?"})
	var aerr *analyst.Error
	require.True(t, errors.As(err, &aerr))
	assert.Equal(t, analyst.KindConfiguration, aerr.Kind)
}

func TestBuild_WithCompletionKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Completion.APIKey = "sk-test"

	p, err := app.Build(context.Background(), cfg, app.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer p.Close()

	assert.True(t, p.Analyst.Configured())
	assert.NotNil(t, p.Registry)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*app.Config)
		target error
	}{
		{"unknown source", func(c *app.Config) { c.Source = "kafka" }, app.ErrUnknownSource},
		{"missing csv", func(c *app.Config) { c.CSVPath = filepath.Join(t.TempDir(), "none.csv") }, os.ErrNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(&cfg)
			_, err := app.Build(context.Background(), cfg, app.Options{Logger: zerolog.Nop()})
			assert.ErrorIs(t, err, tt.target)
		})
	}

	t.Run("bad estimator", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Analyst.Estimator = "magic"
		_, err := app.Build(context.Background(), cfg, app.Options{Logger: zerolog.Nop()})
		assert.Error(t, err)
	})
}

func TestNewResolver(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		r, err := app.NewResolver(app.Config{})
		require.NoError(t, err)
		assert.NotEmpty(t, r.Landmarks())
		assert.Equal(t, "America/New_York", r.Location().String())
	})

	t.Run("file with timezone override", func(t *testing.T) {
		path := writeFile(t, "campus.yaml", `timezone: America/Chicago
landmarks:
  - name: Test Hall
    kind: building
    lat: 33.7771
    lon: -84.3962
    radius: 50
`)
		r, err := app.NewResolver(app.Config{LandmarksPath: path, Timezone: "UTC"})
		require.NoError(t, err)
		require.Len(t, r.Landmarks(), 1)
		assert.Equal(t, "Test Hall", r.Landmarks()[0].Name)
		assert.Equal(t, "UTC", r.Location().String())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := app.NewResolver(app.Config{LandmarksPath: filepath.Join(t.TempDir(), "nope.yaml")})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
