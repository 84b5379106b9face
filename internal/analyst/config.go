package analyst

import (
	"os"
	"strconv"
	"time"

	"github.com/stingsense/stingsense/internal/cache"
	"github.com/stingsense/stingsense/internal/card"
	"github.com/stingsense/stingsense/internal/chunking"
)

// Config holds the tunable pipeline limits read from the environment.
type Config struct {
	SingleRequestChars int
	MaxInputTokens     int
	MaxChunks          int
	SynthesisChars     int
	Prefetch           int
	Estimator          string

	MaxFindings  int
	MaxCardChars int

	// CacheSize of zero disables the response cache.
	CacheSize int
	CacheTTL  time.Duration
}

// ConfigFromEnv creates a Config from environment variables.
func ConfigFromEnv() Config {
	singleChars, _ := strconv.Atoi(getEnvOrDefault("RAW_SINGLE_REQUEST_CHAR_LIMIT", "11000"))
	maxTokens, _ := strconv.Atoi(getEnvOrDefault("RAW_MAX_INPUT_TOKENS", "3000"))
	maxChunks, _ := strconv.Atoi(getEnvOrDefault("RAW_MAX_CHUNKS", "20"))
	synthesisChars, _ := strconv.Atoi(getEnvOrDefault("RAW_SYNTHESIS_CHAR_LIMIT", "24000"))
	prefetch, _ := strconv.Atoi(getEnvOrDefault("RAW_PREFETCH", "0"))
	maxFindings, _ := strconv.Atoi(getEnvOrDefault("CARD_MAX_FINDINGS", "10"))
	maxCardChars, _ := strconv.Atoi(getEnvOrDefault("CARD_MAX_CHARS", "4000"))
	cacheSize, _ := strconv.Atoi(getEnvOrDefault("CACHE_SIZE", "256"))
	cacheTTL, _ := time.ParseDuration(getEnvOrDefault("CACHE_TTL", "0s"))

	return Config{
		SingleRequestChars: singleChars,
		MaxInputTokens:     maxTokens,
		MaxChunks:          maxChunks,
		SynthesisChars:     synthesisChars,
		Prefetch:           prefetch,
		Estimator:          getEnvOrDefault("TOKEN_ESTIMATOR", chunking.EstimatorCharsPerToken),
		MaxFindings:        maxFindings,
		MaxCardChars:       maxCardChars,
		CacheSize:          cacheSize,
		CacheTTL:           cacheTTL,
	}
}

// ChunkingConfig returns the chunking engine limits.
func (c Config) ChunkingConfig() (chunking.Config, error) {
	estimator, err := chunking.EstimatorByName(c.Estimator)
	if err != nil {
		return chunking.Config{}, err
	}
	return chunking.Config{
		SingleRequestChars: c.SingleRequestChars,
		MaxInputTokens:     c.MaxInputTokens,
		MaxChunks:          c.MaxChunks,
		SynthesisChars:     c.SynthesisChars,
		Prefetch:           c.Prefetch,
		Estimator:          estimator,
	}, nil
}

// CardConfig returns the context card limits.
func (c Config) CardConfig() card.Config {
	return card.Config{
		MaxFindings: c.MaxFindings,
		MaxChars:    c.MaxCardChars,
	}
}

// NewCache returns the response cache described by c.
func (c Config) NewCache() (cache.Store[*Answer], error) {
	if c.CacheSize <= 0 {
		return cache.Noop[*Answer]{}, nil
	}
	return cache.NewLRU[*Answer](cache.Config{Size: c.CacheSize, TTL: c.CacheTTL})
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
