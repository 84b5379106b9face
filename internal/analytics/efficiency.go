package analytics

import (
	"fmt"
	"time"

	"github.com/stingsense/stingsense/internal/busdata"
	"github.com/stingsense/stingsense/internal/geo"
)

// RouteEfficiency compares the traveled path with the direct line between its ends.
type RouteEfficiency struct {
	StraightLineMeters float64 `json:"straightLineDistanceMeters"`
	TraveledMeters     float64 `json:"traveledDistanceMeters"`
	// Ratio is straight-line / traveled in [0, 1]; 1 is perfectly direct.
	Ratio      float64   `json:"efficiencyRatio"`
	Stationary bool      `json:"stationary"`
	PointCount int       `json:"pointCount"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	From       string    `json:"from"`
	To         string    `json:"to"`
	// Polyline is the path encoded with the Google polyline algorithm.
	Polyline string `json:"polyline"`
}

// ComputeRouteEfficiency measures the route traced by events in timestamp order.
// It returns ErrInsufficientData for fewer than two events and ErrDegenerateRoute when
// the endpoints differ but no distance was traveled.
func (a *Analyzer) ComputeRouteEfficiency(events []busdata.Event) (*RouteEfficiency, error) {
	if len(events) < 2 {
		return nil, fmt.Errorf("%w: route efficiency needs at least 2 events, got %d", ErrInsufficientData, len(events))
	}

	sorted := busdata.SortedByTime(events)
	points := busdata.Points(sorted)
	first, last := sorted[0], sorted[len(sorted)-1]

	result := &RouteEfficiency{
		StraightLineMeters: geo.Distance(first.Coordinates, last.Coordinates),
		TraveledMeters:     geo.PathLength(points),
		PointCount:         len(sorted),
		Start:              first.Timestamp,
		End:                last.Timestamp,
		From:               a.resolver.ResolveLocation(first.Coordinates).Text,
		To:                 a.resolver.ResolveLocation(last.Coordinates).Text,
		Polyline:           geo.EncodePolyline(points),
	}

	tol := a.config.StationaryToleranceMeters
	switch {
	case result.TraveledMeters < tol && result.StraightLineMeters < tol:
		result.Stationary = true
		result.Ratio = 1.0
	case result.TraveledMeters < tol:
		return nil, fmt.Errorf("%w: straight-line %.1fm, traveled %.1fm",
			ErrDegenerateRoute, result.StraightLineMeters, result.TraveledMeters)
	default:
		result.Ratio = clamp(result.StraightLineMeters/result.TraveledMeters, 0, 1)
	}

	return result, nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
