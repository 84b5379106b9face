// Package analytics implements the aggregations behind context cards: behavior
// hotspots, dwell indicators, route efficiency, neighbor summaries and descriptive
// statistics. Every aggregation is a pure function of its input events; inputs are
// never mutated and identical inputs produce identical output.
package analytics

import (
	"errors"
	"time"

	"github.com/stingsense/stingsense/internal/geocontext"
)

// Aggregation errors.
var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrDegenerateRoute  = errors.New("route has zero traveled distance but distinct endpoints")
)

// Config holds the aggregation thresholds.
type Config struct {
	// NeighborRadiusMeters is the default neighbor search radius. Default: 100.
	NeighborRadiusMeters float64

	// DwellThreshold is the minimum reporting gap treated as a dwell. Default: 2m.
	DwellThreshold time.Duration

	// MaxHotspots caps the number of hotspots returned. Default: 5.
	MaxHotspots int

	// StationaryToleranceMeters is the distance below which a route length counts
	// as zero. Default: 1.
	StationaryToleranceMeters float64
}

// DefaultConfig returns the default aggregation thresholds.
func DefaultConfig() Config {
	return Config{
		NeighborRadiusMeters:      100,
		DwellThreshold:            120 * time.Second,
		MaxHotspots:               5,
		StationaryToleranceMeters: 1,
	}
}

// Analyzer runs aggregations against telemetry, describing places and times with a
// geocontext.Resolver. It holds no mutable state and is safe for concurrent use.
type Analyzer struct {
	resolver *geocontext.Resolver
	config   Config
}

// NewAnalyzer creates an Analyzer. Zero config fields take their defaults.
func NewAnalyzer(resolver *geocontext.Resolver, config Config) *Analyzer {
	defaults := DefaultConfig()
	if config.NeighborRadiusMeters <= 0 {
		config.NeighborRadiusMeters = defaults.NeighborRadiusMeters
	}
	if config.DwellThreshold <= 0 {
		config.DwellThreshold = defaults.DwellThreshold
	}
	if config.MaxHotspots <= 0 {
		config.MaxHotspots = defaults.MaxHotspots
	}
	if config.StationaryToleranceMeters <= 0 {
		config.StationaryToleranceMeters = defaults.StationaryToleranceMeters
	}
	return &Analyzer{resolver: resolver, config: config}
}

// Resolver returns the context resolver used by the analyzer.
func (a *Analyzer) Resolver() *geocontext.Resolver {
	return a.resolver
}

// Config returns the effective configuration.
func (a *Analyzer) Config() Config {
	return a.config
}
