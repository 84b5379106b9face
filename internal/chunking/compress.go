package chunking

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stingsense/stingsense/internal/busdata"
)

// Record is the compact form of an event sent to the model in raw mode.
// Keys are abbreviated to save prompt space.
type Record struct {
	Behavior    string     `json:"b"`
	Timestamp   string     `json:"t"`
	Coordinates [2]float64 `json:"c"` // lat, lon
	ID          string     `json:"i"`
	Cluster     string     `json:"cl,omitempty"`
	Instability float64    `json:"s"`
	AccelMean   *float64   `json:"m,omitempty"`
	Activity    string     `json:"a,omitempty"`
}

// Compress projects events onto Records in arrival order.
func Compress(events []busdata.Event) []Record {
	records := make([]Record, len(events))
	for i := range events {
		e := &events[i]
		r := Record{
			Behavior:    string(e.Behavior),
			Timestamp:   e.Timestamp.UTC().Format(time.RFC3339),
			Coordinates: [2]float64{e.Coordinates.Lat, e.Coordinates.Lon},
			ID:          e.ID,
			Cluster:     e.ClusterID,
			Instability: e.InstabilityScore,
			Activity:    e.Activity,
		}
		if e.Acceleration != nil {
			mean := e.Acceleration.Mean
			r.AccelMean = &mean
		}
		records[i] = r
	}
	return records
}

// Serialize renders records as indented JSON.
func Serialize(records []Record) (string, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serializing telemetry: %w", err)
	}
	return string(data), nil
}
