// Package busdata holds the bus telemetry model and the sources it is loaded from.
// Events are reference data: loaded once at startup and never mutated afterwards.
package busdata

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/stingsense/stingsense/internal/geo"
)

// Sentinel errors for telemetry loading.
var (
	// ErrNoEvents indicates a source produced no usable telemetry.
	ErrNoEvents = errors.New("no telemetry events loaded")
	// ErrMissingColumn indicates a CSV file lacks a required column.
	ErrMissingColumn = errors.New("missing required column")
)

// Behavior is the accelerometer-derived driving behavior label.
type Behavior string

const (
	BehaviorCalm           Behavior = "Calm"
	BehaviorModerate       Behavior = "Moderate"
	BehaviorAggressive     Behavior = "Aggressive"
	BehaviorVeryAggressive Behavior = "Very Aggressive"
	BehaviorUnknown        Behavior = "Unknown"
)

// Behaviors lists the known labels in severity order.
var Behaviors = []Behavior{
	BehaviorCalm,
	BehaviorModerate,
	BehaviorAggressive,
	BehaviorVeryAggressive,
}

// ParseBehavior maps a raw label to a Behavior. Matching ignores case, surrounding
// whitespace and underscore/space differences; anything else is BehaviorUnknown.
func ParseBehavior(s string) Behavior {
	norm := strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
	for _, b := range Behaviors {
		if strings.ToLower(string(b)) == norm {
			return b
		}
	}
	return BehaviorUnknown
}

// IsAggressive reports whether the behavior counts toward hotspot detection.
func (b Behavior) IsAggressive() bool {
	return b == BehaviorAggressive || b == BehaviorVeryAggressive
}

// AccelerationStats summarises the raw accelerometer window behind an event.
type AccelerationStats struct {
	Mean float64    `json:"mean"`
	P99  [3]float64 `json:"p99"` // x, y, z
}

// Event is a single classified telemetry reading.
type Event struct {
	ID               string             `json:"id"`
	Timestamp        time.Time          `json:"timestamp"`
	Coordinates      geo.Point          `json:"coordinates"`
	Behavior         Behavior           `json:"behavior"`
	InstabilityScore float64            `json:"instabilityScore"`
	Acceleration     *AccelerationStats `json:"accelerationStats,omitempty"`
	ClusterID        string             `json:"clusterId,omitempty"`
	Activity         string             `json:"activity,omitempty"`
}

// HasCluster reports whether the event was assigned to a spatial cluster upstream.
func (e *Event) HasCluster() bool {
	return e.ClusterID != ""
}

// Source loads the full telemetry collection.
type Source interface {
	Load(ctx context.Context) ([]Event, error)
	// Name identifies the source for logging.
	Name() string
}

// SortedByTime returns a copy of events ordered by timestamp ascending.
// The sort is stable so events sharing a timestamp keep their arrival order.
func SortedByTime(events []Event) []Event {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// Points extracts the coordinates of events in order.
func Points(events []Event) []geo.Point {
	points := make([]geo.Point, len(events))
	for i := range events {
		points[i] = events[i].Coordinates
	}
	return points
}
