package query

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stingsense/stingsense/internal/analytics"
	"github.com/stingsense/stingsense/internal/busdata"
	"github.com/stingsense/stingsense/internal/card"
	"github.com/stingsense/stingsense/internal/geocontext"
)

// Finding kinds.
const (
	KindHotspot    = "hotspot"
	KindDwell      = "dwell"
	KindEfficiency = "efficiency"
	KindSummary    = "summary"
	KindFocus      = "focus"
	KindNoResult   = "noResult"
)

// Focus is the neighborhood of a landmark named in a general question.
type Focus struct {
	Landmark  string                    `json:"landmark"`
	Neighbors analytics.NeighborSummary `json:"neighbors"`
}

// StructuredFindings is the aggregated answer material for one question.
type StructuredFindings struct {
	Intent     Intent                     `json:"intent"`
	Title      string                     `json:"title"`
	Hotspots   []analytics.Hotspot        `json:"hotspots,omitempty"`
	Dwells     []analytics.DwellEvent     `json:"dwells,omitempty"`
	Efficiency *analytics.RouteEfficiency `json:"efficiency,omitempty"`
	Summary    *analytics.Summary         `json:"summary,omitempty"`
	Focus      *Focus                     `json:"focus,omitempty"`
	// Findings are the rendered lines, in card order.
	Findings []card.Finding `json:"findings"`
}

// RouterConfig holds configuration for the Router.
type RouterConfig struct {
	Analyzer   *analytics.Analyzer
	Classifier *Classifier
	Logger     zerolog.Logger
}

// Router classifies questions and runs the matching aggregation.
type Router struct {
	analyzer   *analytics.Analyzer
	classifier *Classifier
	logger     zerolog.Logger
}

// NewRouter creates a Router. A nil classifier uses the default keyword table.
func NewRouter(cfg RouterConfig) *Router {
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = defaultClassifier
	}
	return &Router{
		analyzer:   cfg.Analyzer,
		classifier: classifier,
		logger:     cfg.Logger,
	}
}

// Classify classifies text.
func (r *Router) Classify(text string) Classification {
	return r.classifier.Classify(text)
}

// Dispatch runs the aggregation for intent. Aggregation failures are reported as
// explicit no-result findings rather than errors.
func (r *Router) Dispatch(intent Intent, events []busdata.Event, queryText string) StructuredFindings {
	r.logger.Debug().
		Str("intent", string(intent)).
		Int("events", len(events)).
		Msg("dispatching query")

	switch intent {
	case IntentAggressiveDriving:
		return r.hotspots(events)
	case IntentDwellTime:
		return r.dwell(events)
	case IntentRouteEfficiency:
		return r.efficiency(events)
	default:
		return r.general(events, queryText)
	}
}

func (r *Router) hotspots(events []busdata.Event) StructuredFindings {
	sf := StructuredFindings{
		Intent:   IntentAggressiveDriving,
		Title:    "Aggressive driving hotspots (ranked by average instability x event count)",
		Hotspots: r.analyzer.ComputeHotspots(events),
	}
	if len(sf.Hotspots) == 0 {
		sf.Findings = append(sf.Findings, noResult("No clustered aggressive driving events were found."))
		return sf
	}
	for _, h := range sf.Hotspots {
		sf.Findings = append(sf.Findings, card.Finding{Kind: KindHotspot, Summary: describeHotspot(h)})
	}
	return sf
}

func (r *Router) dwell(events []busdata.Event) StructuredFindings {
	dwells := r.analyzer.ComputeDwellIndicators(events)

	// Longest stops first on the card; ties stay chronological.
	ranked := make([]analytics.DwellEvent, len(dwells))
	copy(ranked, dwells)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].DurationMs > ranked[j].DurationMs
	})

	threshold := r.analyzer.Config().DwellThreshold
	sf := StructuredFindings{
		Intent: IntentDwellTime,
		Title:  fmt.Sprintf("Dwell indicators (reporting gaps of %s or more, longest first)", threshold),
		Dwells: ranked,
	}
	if len(ranked) == 0 {
		sf.Findings = append(sf.Findings, noResult(fmt.Sprintf("No stops of %s or longer were detected.", threshold)))
		return sf
	}
	for _, d := range ranked {
		sf.Findings = append(sf.Findings, card.Finding{Kind: KindDwell, Summary: describeDwell(d)})
	}
	return sf
}

func (r *Router) efficiency(events []busdata.Event) StructuredFindings {
	sf := StructuredFindings{
		Intent: IntentRouteEfficiency,
		Title:  "Route efficiency (straight-line distance / traveled distance)",
	}

	result, err := r.analyzer.ComputeRouteEfficiency(events)
	switch {
	case errors.Is(err, analytics.ErrInsufficientData):
		sf.Findings = append(sf.Findings, noResult(fmt.Sprintf("Route efficiency unavailable: at least 2 readings are needed, found %d.", len(events))))
		return sf
	case errors.Is(err, analytics.ErrDegenerateRoute):
		sf.Findings = append(sf.Findings, noResult("Route efficiency unavailable: the endpoints differ but no distance was traveled."))
		return sf
	case err != nil:
		r.logger.Warn().Err(err).Msg("route efficiency failed")
		sf.Findings = append(sf.Findings, noResult("Route efficiency unavailable."))
		return sf
	}

	sf.Efficiency = result
	sf.Findings = append(sf.Findings, card.Finding{Kind: KindEfficiency, Summary: describeEfficiency(result)})
	return sf
}

func (r *Router) general(events []busdata.Event, queryText string) StructuredFindings {
	summary := analytics.ComputeSummary(events)
	sf := StructuredFindings{
		Intent:  IntentGeneralInfo,
		Title:   "Telemetry overview",
		Summary: &summary,
	}

	if landmark, ok := r.analyzer.Resolver().FindLandmark(queryText); ok {
		neighbors := r.analyzer.AnalyzeNeighbors(analytics.NeighborQuery{
			Point:        landmark.Center,
			RadiusMeters: landmark.RadiusMeters,
		}, events)
		sf.Focus = &Focus{Landmark: landmark.Name, Neighbors: neighbors}
		sf.Findings = append(sf.Findings, card.Finding{Kind: KindFocus, Summary: describeFocus(landmark, neighbors)})
	}

	sf.Findings = append(sf.Findings, describeSummary(summary)...)
	return sf
}

func noResult(msg string) card.Finding {
	return card.Finding{Kind: KindNoResult, Summary: msg}
}

func describeHotspot(h analytics.Hotspot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cluster %s: %d aggressive events, average instability %.2f, priority %.2f, %s",
		h.ClusterID, h.EventCount, h.AverageInstability, h.PriorityScore, h.Location.Text)
	if h.Temporal.Text != "" {
		fmt.Fprintf(&b, ", mostly %s", h.Temporal.Text)
	}
	if h.CampusFeature != "" {
		fmt.Fprintf(&b, "; expected activity: %s", h.CampusFeature)
	}
	fmt.Fprintf(&b, "; %d readings within %.0f m (%s)", h.Neighbors.Count, h.Neighbors.RadiusMeters, h.Neighbors.Density)
	return b.String()
}

func describeDwell(d analytics.DwellEvent) string {
	return fmt.Sprintf("Stopped for %s %s, starting %s (%s); resumed with %s driving",
		formatDuration(d.Duration()), d.Location.Text,
		d.Temporal.Local.Format("2006-01-02 15:04"), d.Temporal.Text, d.PostDwellBehavior)
}

func describeEfficiency(e *analytics.RouteEfficiency) string {
	if e.Stationary {
		return fmt.Sprintf("The bus stayed %s across %d readings (stationary route, ratio 1.00)", e.From, e.PointCount)
	}
	return fmt.Sprintf("Efficiency ratio %.2f: traveled %.0f m versus %.0f m straight-line, from %s to %s across %d readings over %s",
		e.Ratio, e.TraveledMeters, e.StraightLineMeters, e.From, e.To, e.PointCount, formatDuration(e.End.Sub(e.Start)))
}

func describeFocus(l geocontext.Landmark, n analytics.NeighborSummary) string {
	if n.Count == 0 {
		return fmt.Sprintf("Around %s (%.0f m): no readings", l.Name, n.RadiusMeters)
	}
	return fmt.Sprintf("Around %s (%.0f m): %d readings, %s, mostly %s (%s)",
		l.Name, n.RadiusMeters, n.Count, n.Density, n.Dominant, behaviorMix(n.BehaviorCounts, func(b busdata.Behavior) float64 {
			return float64(n.BehaviorCounts[b]) / float64(n.Count)
		}))
}

func describeSummary(s analytics.Summary) []card.Finding {
	if s.TotalEvents == 0 {
		return []card.Finding{noResult("No telemetry readings are loaded.")}
	}
	return []card.Finding{
		{Kind: KindSummary, Summary: fmt.Sprintf("%d telemetry readings from %s to %s (%s)",
			s.TotalEvents, s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339), formatDuration(s.Span()))},
		{Kind: KindSummary, Summary: "Behavior counts: " + behaviorMix(s.BehaviorCounts, s.Share)},
		{Kind: KindSummary, Summary: fmt.Sprintf("Average instability %.2f; %d readings in %d clusters",
			s.AverageInstability, s.ClusteredEvents, s.Clusters)},
	}
}

// behaviorMix renders counts in severity order, e.g. "Calm 12 (60.0%), Moderate 8 (40.0%)".
func behaviorMix(counts map[busdata.Behavior]int, share func(busdata.Behavior) float64) string {
	parts := make([]string, 0, len(busdata.Behaviors)+1)
	for _, b := range append(append([]busdata.Behavior(nil), busdata.Behaviors...), busdata.BehaviorUnknown) {
		c := counts[b]
		if c == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %d (%.1f%%)", b, c, 100*share(b)))
	}
	return strings.Join(parts, ", ")
}

func formatDuration(d time.Duration) string {
	return d.Round(time.Second).String()
}
