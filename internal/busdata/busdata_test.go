package busdata_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stingsense/stingsense/internal/busdata"
	"github.com/stingsense/stingsense/internal/geo"
)

func TestParseBehavior(t *testing.T) {
	tests := []struct {
		in   string
		want busdata.Behavior
	}{
		{"Calm", busdata.BehaviorCalm},
		{"moderate", busdata.BehaviorModerate},
		{" AGGRESSIVE ", busdata.BehaviorAggressive},
		{"Very Aggressive", busdata.BehaviorVeryAggressive},
		{"very_aggressive", busdata.BehaviorVeryAggressive},
		{"Reckless", busdata.BehaviorUnknown},
		{"", busdata.BehaviorUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, busdata.ParseBehavior(tt.in))
		})
	}
}

func TestBehavior_IsAggressive(t *testing.T) {
	assert.True(t, busdata.BehaviorAggressive.IsAggressive())
	assert.True(t, busdata.BehaviorVeryAggressive.IsAggressive())
	assert.False(t, busdata.BehaviorModerate.IsAggressive())
	assert.False(t, busdata.BehaviorCalm.IsAggressive())
}

func TestReadCSV_CoordinatesColumn(t *testing.T) {
	input := `id,timestamp,behavior,coordinates,cluster,activity,accel_mean
7,2024-10-24T08:00:00Z,Aggressive,"[33.7771, -84.3963]",Klaus_Area,Braking,1.25
8,2024-10-24T08:00:30Z,Calm,"[33.7772, -84.3964]",,Moving,0.2
`
	result, err := busdata.ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Events, 2)
	assert.Zero(t, result.Skipped)

	first := result.Events[0]
	assert.Equal(t, "7", first.ID)
	assert.Equal(t, time.Date(2024, 10, 24, 8, 0, 0, 0, time.UTC), first.Timestamp)
	assert.Equal(t, geo.Point{Lat: 33.7771, Lon: -84.3963}, first.Coordinates)
	assert.Equal(t, busdata.BehaviorAggressive, first.Behavior)
	assert.Equal(t, "Klaus_Area", first.ClusterID)
	assert.Equal(t, "Braking", first.Activity)
	require.NotNil(t, first.Acceleration)
	assert.InDelta(t, 1.25, first.Acceleration.Mean, 1e-9)
	// No instability column: falls back to accel_mean.
	assert.InDelta(t, 1.25, first.InstabilityScore, 1e-9)

	assert.False(t, result.Events[1].HasCluster())
}

func TestReadCSV_LatLonColumnsAndSkips(t *testing.T) {
	input := `timestamp,latitude,longitude,behavior,instability_score
2024-10-24 08:00:00,33.7756,-84.3963,Moderate,0.8
2024-10-24 08:00:30,not-a-number,-84.3963,Moderate,0.8
2024-10-24 08:01:00,95.0,-84.3963,Calm,0.1
garbage,33.7756,-84.3963,Calm,0.1
2024-10-24 08:01:30,33.7757,-84.3964,Very Aggressive,3.5
`
	result, err := busdata.ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Events, 2)
	assert.Equal(t, 3, result.Skipped)

	// Missing id column: row ordinal is used.
	assert.Equal(t, "0", result.Events[0].ID)
	assert.Equal(t, "4", result.Events[1].ID)
	assert.InDelta(t, 3.5, result.Events[1].InstabilityScore, 1e-9)
	assert.Nil(t, result.Events[0].Acceleration)
}

func TestReadCSV_MissingColumns(t *testing.T) {
	_, err := busdata.ReadCSV(strings.NewReader("latitude,longitude\n1,2\n"))
	assert.ErrorIs(t, err, busdata.ErrMissingColumn)

	_, err = busdata.ReadCSV(strings.NewReader("timestamp,behavior\n2024-10-24T08:00:00Z,Calm\n"))
	assert.ErrorIs(t, err, busdata.ErrMissingColumn)
}

func TestCSVSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bus_data.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,latitude,longitude,behavior\n2024-10-24T08:00:00Z,33.77,-84.39,Calm\n"), 0o600))

	src := busdata.NewCSVSource(path, zerolog.Nop())
	ds, err := busdata.LoadDataset(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Len())
	assert.Equal(t, "csv:"+path, ds.Source())
}

func TestLoadDataset_Empty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("timestamp,latitude,longitude\n"), 0o600))

	_, err := busdata.LoadDataset(context.Background(), busdata.NewCSVSource(path, zerolog.Nop()))
	assert.ErrorIs(t, err, busdata.ErrNoEvents)
}

func TestNewDataset_CopiesInput(t *testing.T) {
	events := []busdata.Event{{ID: "a"}, {ID: "b"}}
	ds := busdata.NewDataset("test", events)

	events[0].ID = "mutated"
	assert.Equal(t, "a", ds.Events()[0].ID)
}

func TestSortedByTime_StableAndNonMutating(t *testing.T) {
	base := time.Date(2024, 10, 24, 8, 0, 0, 0, time.UTC)
	events := []busdata.Event{
		{ID: "late", Timestamp: base.Add(time.Minute)},
		{ID: "tie-1", Timestamp: base},
		{ID: "tie-2", Timestamp: base},
	}

	sorted := busdata.SortedByTime(events)

	assert.Equal(t, []string{"tie-1", "tie-2", "late"}, ids(sorted))
	assert.Equal(t, []string{"late", "tie-1", "tie-2"}, ids(events))
}

func TestToGeoJSON(t *testing.T) {
	events := []busdata.Event{
		{
			ID:               "1",
			Timestamp:        time.Date(2024, 10, 24, 8, 0, 0, 0, time.UTC),
			Coordinates:      geo.Point{Lat: 33.7771, Lon: -84.3963},
			Behavior:         busdata.BehaviorAggressive,
			InstabilityScore: 2.5,
			ClusterID:        "Klaus_Area",
		},
	}

	fc := busdata.ToGeoJSON(events)
	raw, err := json.Marshal(fc)
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "FeatureCollection", decoded.Type)
	require.Len(t, decoded.Features, 1)
	f := decoded.Features[0]
	assert.Equal(t, "Point", f.Geometry.Type)
	assert.Equal(t, []float64{-84.3963, 33.7771}, f.Geometry.Coordinates)
	assert.Equal(t, "Aggressive", f.Properties["behavior"])
	assert.Equal(t, "Klaus_Area", f.Properties["cluster"])
	assert.NotContains(t, f.Properties, "accel_mean")
}

func ids(events []busdata.Event) []string {
	out := make([]string, len(events))
	for i := range events {
		out[i] = events[i].ID
	}
	return out
}
