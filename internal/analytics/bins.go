package analytics

import (
	"fmt"
	"math"
	"sort"

	"github.com/stingsense/stingsense/internal/busdata"
)

// BinPalette colors equal-frequency bins from lowest (red) to highest (green).
var BinPalette = []string{"#d73027", "#fc8d59", "#fee08b", "#d9ef8b", "#91cf60"}

// Bin is one equal-frequency interval (Lower, Upper]. The first bin also includes Lower.
type Bin struct {
	Index int     `json:"index"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
	Color string  `json:"color"`
}

// Contains reports whether v falls in the bin.
func (b Bin) Contains(v float64) bool {
	if b.Index == 0 {
		return v >= b.Lower && v <= b.Upper
	}
	return v > b.Lower && v <= b.Upper
}

// QuantileBins splits values into n bins holding roughly equal numbers of values.
// Edges are linearly interpolated quantiles; duplicate edges are dropped, so heavily
// repeated values yield fewer than n bins.
func QuantileBins(values []float64, n int) ([]Bin, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: no values to bin", ErrInsufficientData)
	}
	if n <= 0 || n > len(BinPalette) {
		return nil, fmt.Errorf("bin count %d out of range [1, %d]", n, len(BinPalette))
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	edges := make([]float64, 0, n+1)
	for i := 0; i <= n; i++ {
		q := quantile(sorted, float64(i)/float64(n))
		if len(edges) > 0 && q == edges[len(edges)-1] {
			continue
		}
		edges = append(edges, q)
	}
	if len(edges) == 1 {
		// Every value is identical.
		edges = append(edges, edges[0])
	}

	bins := make([]Bin, len(edges)-1)
	for i := range bins {
		bins[i] = Bin{Index: i, Lower: edges[i], Upper: edges[i+1], Color: BinPalette[i]}
	}
	for _, v := range sorted {
		for i := range bins {
			if bins[i].Contains(v) {
				bins[i].Count++
				break
			}
		}
	}
	return bins, nil
}

// AccelerationMeans extracts the accelerometer mean of every event that carries one.
func AccelerationMeans(events []busdata.Event) []float64 {
	values := make([]float64, 0, len(events))
	for i := range events {
		if events[i].Acceleration != nil {
			values = append(values, events[i].Acceleration.Mean)
		}
	}
	return values
}

// quantile returns the q-th quantile of sorted values using linear interpolation.
func quantile(sorted []float64, q float64) float64 {
	index := q * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
