package analytics

import (
	"sort"

	"github.com/stingsense/stingsense/internal/busdata"
	"github.com/stingsense/stingsense/internal/geo"
	"github.com/stingsense/stingsense/internal/geocontext"
)

// Hotspot is a cluster of aggressive driving events.
type Hotspot struct {
	ClusterID          string                         `json:"clusterId"`
	EventCount         int                            `json:"eventCount"`
	AverageInstability float64                        `json:"averageInstability"`
	PriorityScore      float64                        `json:"priorityScore"`
	Centroid           geo.Point                      `json:"centroid"`
	Location           geocontext.LocationDescription `json:"location"`
	// Temporal describes the most common time-of-day among the cluster's events.
	Temporal      geocontext.TemporalDescription `json:"temporal"`
	CampusFeature string                         `json:"campusFeature,omitempty"`
	Neighbors     NeighborSummary                `json:"neighbors"`
}

type hotspotGroup struct {
	members []*busdata.Event
	sum     float64
}

// ComputeHotspots groups Aggressive and Very Aggressive events by cluster and ranks the
// clusters by average instability × event count. Events without a cluster are ignored.
func (a *Analyzer) ComputeHotspots(events []busdata.Event) []Hotspot {
	groups := make(map[string]*hotspotGroup)
	for i := range events {
		e := &events[i]
		if !e.Behavior.IsAggressive() || !e.HasCluster() {
			continue
		}
		g, ok := groups[e.ClusterID]
		if !ok {
			g = &hotspotGroup{}
			groups[e.ClusterID] = g
		}
		g.members = append(g.members, e)
		g.sum += e.InstabilityScore
	}

	hotspots := make([]Hotspot, 0, len(groups))
	for id, g := range groups {
		n := len(g.members)
		avg := g.sum / float64(n)
		hotspots = append(hotspots, Hotspot{
			ClusterID:          id,
			EventCount:         n,
			AverageInstability: avg,
			PriorityScore:      avg * float64(n),
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		if hotspots[i].PriorityScore != hotspots[j].PriorityScore {
			return hotspots[i].PriorityScore > hotspots[j].PriorityScore
		}
		return hotspots[i].ClusterID < hotspots[j].ClusterID
	})
	if len(hotspots) > a.config.MaxHotspots {
		hotspots = hotspots[:a.config.MaxHotspots]
	}

	// Context is resolved only for the survivors.
	for i := range hotspots {
		h := &hotspots[i]
		members := groups[h.ClusterID].members

		points := make([]geo.Point, len(members))
		for j, m := range members {
			points[j] = m.Coordinates
		}
		h.Centroid = geo.Centroid(points)
		h.Location = a.resolver.ResolveLocation(h.Centroid)
		h.Temporal = a.modalTemporal(members)
		h.CampusFeature = a.resolver.ResolveCampusFeature(h.Location, h.Temporal)
		h.Neighbors = a.AnalyzeNeighbors(NeighborQuery{Point: h.Centroid}, events)
	}

	return hotspots
}

// modalTemporal returns the temporal description of the earliest member carrying the
// most frequent descriptor. Descriptor ties go to the alphabetically first one.
func (a *Analyzer) modalTemporal(members []*busdata.Event) geocontext.TemporalDescription {
	type tally struct {
		count int
		first geocontext.TemporalDescription
	}
	tallies := make(map[string]*tally)

	for _, m := range busdata.SortedByTime(derefEvents(members)) {
		td := a.resolver.ResolveTime(m.Timestamp)
		t, ok := tallies[td.Descriptor]
		if !ok {
			t = &tally{first: td}
			tallies[td.Descriptor] = t
		}
		t.count++
	}

	var (
		best     string
		bestTall *tally
	)
	for desc, t := range tallies {
		if bestTall == nil || t.count > bestTall.count || (t.count == bestTall.count && desc < best) {
			best, bestTall = desc, t
		}
	}
	if bestTall == nil {
		return geocontext.TemporalDescription{}
	}
	return bestTall.first
}

func derefEvents(ptrs []*busdata.Event) []busdata.Event {
	out := make([]busdata.Event, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}
