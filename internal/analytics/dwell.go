package analytics

import (
	"time"

	"github.com/stingsense/stingsense/internal/busdata"
	"github.com/stingsense/stingsense/internal/geo"
	"github.com/stingsense/stingsense/internal/geocontext"
)

// DwellEvent is a reporting gap long enough to indicate the bus was stopped.
type DwellEvent struct {
	// EventID is the last event reported before the gap.
	EventID     string                         `json:"eventId"`
	Start       time.Time                      `json:"start"`
	End         time.Time                      `json:"end"`
	DurationMs  int64                          `json:"durationMs"`
	Coordinates geo.Point                      `json:"coordinates"`
	Location    geocontext.LocationDescription `json:"location"`
	Temporal    geocontext.TemporalDescription `json:"temporal"`
	// PostDwellBehavior is the label of the first event after the gap.
	PostDwellBehavior busdata.Behavior `json:"postDwellBehavior"`
}

// Duration returns the gap length.
func (d DwellEvent) Duration() time.Duration {
	return time.Duration(d.DurationMs) * time.Millisecond
}

// ComputeDwellIndicators reports every gap between consecutive events (by timestamp)
// of at least the dwell threshold, in chronological order. Gaps have no upper bound.
func (a *Analyzer) ComputeDwellIndicators(events []busdata.Event) []DwellEvent {
	sorted := busdata.SortedByTime(events)

	dwells := make([]DwellEvent, 0)
	for i := 1; i < len(sorted); i++ {
		prev, next := &sorted[i-1], &sorted[i]
		gap := next.Timestamp.Sub(prev.Timestamp)
		if gap < a.config.DwellThreshold {
			continue
		}
		dwells = append(dwells, DwellEvent{
			EventID:           prev.ID,
			Start:             prev.Timestamp,
			End:               next.Timestamp,
			DurationMs:        gap.Milliseconds(),
			Coordinates:       prev.Coordinates,
			Location:          a.resolver.ResolveLocation(prev.Coordinates),
			Temporal:          a.resolver.ResolveTime(prev.Timestamp),
			PostDwellBehavior: next.Behavior,
		})
	}
	return dwells
}
