package analytics

import (
	"time"

	"github.com/stingsense/stingsense/internal/busdata"
)

// Summary holds descriptive statistics for a telemetry set.
type Summary struct {
	TotalEvents        int                      `json:"totalEvents"`
	Start              time.Time                `json:"start"`
	End                time.Time                `json:"end"`
	BehaviorCounts     map[busdata.Behavior]int `json:"behaviorCounts"`
	AverageInstability float64                  `json:"averageInstability"`
	ClusteredEvents    int                      `json:"clusteredEvents"`
	Clusters           int                      `json:"clusters"`
}

// Span returns the time covered by the telemetry.
func (s Summary) Span() time.Duration {
	return s.End.Sub(s.Start)
}

// Share returns the fraction of events carrying behavior b.
func (s Summary) Share(b busdata.Behavior) float64 {
	if s.TotalEvents == 0 {
		return 0
	}
	return float64(s.BehaviorCounts[b]) / float64(s.TotalEvents)
}

// ComputeSummary computes the event count, timestamp range and per-behavior counts.
func ComputeSummary(events []busdata.Event) Summary {
	s := Summary{
		TotalEvents:    len(events),
		BehaviorCounts: make(map[busdata.Behavior]int),
	}
	if len(events) == 0 {
		return s
	}

	clusters := make(map[string]struct{})
	var instability float64
	s.Start, s.End = events[0].Timestamp, events[0].Timestamp

	for i := range events {
		e := &events[i]
		if e.Timestamp.Before(s.Start) {
			s.Start = e.Timestamp
		}
		if e.Timestamp.After(s.End) {
			s.End = e.Timestamp
		}
		s.BehaviorCounts[e.Behavior]++
		instability += e.InstabilityScore
		if e.HasCluster() {
			s.ClusteredEvents++
			clusters[e.ClusterID] = struct{}{}
		}
	}

	s.AverageInstability = instability / float64(len(events))
	s.Clusters = len(clusters)
	return s
}
