// Package worker runs background jobs for Sting Sense: answering queued questions
// and warming the answer cache with the benchmark questions.
package worker

import (
	"os"
	"strconv"
	"time"

	"github.com/stingsense/stingsense/internal/analyst"
	"github.com/stingsense/stingsense/internal/query"
)

// WarmConfig holds configuration for the cache-warm job.
type WarmConfig struct {
	// Questions are asked once per mode.
	// If empty, uses query.BenchmarkQuestions.
	Questions []query.BenchmarkQuestion

	// Modes to warm.
	// Default: cluster only. Raw mode costs several completion calls per question.
	Modes []analyst.Mode

	// Concurrency is the number of questions asked at once.
	// Default: 2
	Concurrency int

	// Timeout is the timeout for each question.
	// Default: 2 minutes
	Timeout time.Duration
}

// DefaultWarmConfig returns the default cache-warm configuration.
func DefaultWarmConfig() WarmConfig {
	return WarmConfig{
		Questions:   query.BenchmarkQuestions(),
		Modes:       []analyst.Mode{analyst.ModeCluster},
		Concurrency: 2,
		Timeout:     2 * time.Minute,
	}
}

// withDefaults fills unset fields from DefaultWarmConfig.
func (c WarmConfig) withDefaults() WarmConfig {
	d := DefaultWarmConfig()
	if len(c.Questions) == 0 {
		c.Questions = d.Questions
	}
	if len(c.Modes) == 0 {
		c.Modes = d.Modes
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	return c
}

// TotalTasks returns the number of questions asked by one run.
func (c WarmConfig) TotalTasks() int {
	return len(c.Questions) * len(c.Modes)
}

// Config holds the worker process configuration.
type Config struct {
	ProjectID    string
	Subscription string
	// ResultTopic receives answers to query jobs. Results are only logged when empty.
	ResultTopic string

	// MaxOutstanding bounds messages processed at once.
	MaxOutstanding int

	// MaxAttempts is the delivery attempt after which a failing query job is
	// answered with its error instead of being redelivered.
	MaxAttempts int

	Warm WarmConfig
}

// ConfigFromEnv reads PUBSUB_PROJECT_ID, PUBSUB_SUBSCRIPTION, PUBSUB_RESULT_TOPIC,
// WORKER_MAX_OUTSTANDING, WORKER_MAX_ATTEMPTS, WARM_CONCURRENCY, WARM_TIMEOUT and
// WARM_RAW (also warm raw mode).
func ConfigFromEnv() Config {
	maxOutstanding, _ := strconv.Atoi(getEnvOrDefault("WORKER_MAX_OUTSTANDING", "10"))
	maxAttempts, _ := strconv.Atoi(getEnvOrDefault("WORKER_MAX_ATTEMPTS", "5"))
	concurrency, _ := strconv.Atoi(getEnvOrDefault("WARM_CONCURRENCY", "2"))
	timeout, _ := time.ParseDuration(getEnvOrDefault("WARM_TIMEOUT", "2m"))

	warm := WarmConfig{
		Modes:       []analyst.Mode{analyst.ModeCluster},
		Concurrency: concurrency,
		Timeout:     timeout,
	}
	if os.Getenv("WARM_RAW") == "true" {
		warm.Modes = append(warm.Modes, analyst.ModeRaw)
	}

	return Config{
		ProjectID:      os.Getenv("PUBSUB_PROJECT_ID"),
		Subscription:   getEnvOrDefault("PUBSUB_SUBSCRIPTION", "stingsense-jobs"),
		ResultTopic:    os.Getenv("PUBSUB_RESULT_TOPIC"),
		MaxOutstanding: maxOutstanding,
		MaxAttempts:    maxAttempts,
		Warm:           warm.withDefaults(),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
