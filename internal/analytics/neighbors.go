package analytics

import (
	"github.com/stingsense/stingsense/internal/busdata"
	"github.com/stingsense/stingsense/internal/geo"
)

// Density classifies how crowded the surroundings of a point are.
type Density string

const (
	DensityIsolated  Density = "isolated"
	DensityClustered Density = "clustered"
)

// minClusteredNeighbors is the neighbor count at which a point stops being isolated.
const minClusteredNeighbors = 2

// NeighborQuery describes a neighbor search.
type NeighborQuery struct {
	Point geo.Point
	// ExcludeID drops the event with this ID, used when Point is itself an event.
	ExcludeID string
	// RadiusMeters overrides the analyzer's default radius when positive.
	RadiusMeters float64
}

// NeighborSummary is the behavior distribution around a point.
type NeighborSummary struct {
	Center         geo.Point                `json:"center"`
	RadiusMeters   float64                  `json:"radiusMeters"`
	Count          int                      `json:"count"`
	BehaviorCounts map[busdata.Behavior]int `json:"behaviorCounts"`
	Dominant       busdata.Behavior         `json:"dominant,omitempty"`
	Density        Density                  `json:"density"`
}

// AnalyzeNeighbors counts the events within the query radius (inclusive) by behavior.
func (a *Analyzer) AnalyzeNeighbors(q NeighborQuery, events []busdata.Event) NeighborSummary {
	radius := q.RadiusMeters
	if radius <= 0 {
		radius = a.config.NeighborRadiusMeters
	}

	summary := NeighborSummary{
		Center:         q.Point,
		RadiusMeters:   radius,
		BehaviorCounts: make(map[busdata.Behavior]int),
	}

	for i := range events {
		e := &events[i]
		if q.ExcludeID != "" && e.ID == q.ExcludeID {
			continue
		}
		if !geo.Within(q.Point, e.Coordinates, radius) {
			continue
		}
		summary.Count++
		summary.BehaviorCounts[e.Behavior]++
	}

	summary.Dominant = dominantBehavior(summary.BehaviorCounts)
	summary.Density = DensityIsolated
	if summary.Count >= minClusteredNeighbors {
		summary.Density = DensityClustered
	}
	return summary
}

// dominantBehavior returns the most frequent behavior. Ties go to the more severe label.
func dominantBehavior(counts map[busdata.Behavior]int) busdata.Behavior {
	var (
		best      busdata.Behavior
		bestCount int
	)
	order := append([]busdata.Behavior{busdata.BehaviorUnknown}, busdata.Behaviors...)
	for _, b := range order {
		if c := counts[b]; c > 0 && c >= bestCount {
			best, bestCount = b, c
		}
	}
	return best
}
