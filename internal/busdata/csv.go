package busdata

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stingsense/stingsense/internal/geo"
)

// Column aliases accepted in CSV headers, first match wins.
var (
	idColumns          = []string{"id", "event_id"}
	timestampColumns   = []string{"timestamp", "time", "recorded_at"}
	coordinatesColumns = []string{"coordinates", "coords"}
	latitudeColumns    = []string{"latitude", "lat"}
	longitudeColumns   = []string{"longitude", "lon", "lng"}
	behaviorColumns    = []string{"behavior", "behaviour", "label"}
	instabilityColumns = []string{"instability_score", "instability", "instabilityscore"}
	clusterColumns     = []string{"cluster", "cluster_id", "clusterid"}
	activityColumns    = []string{"activity"}
	accelMeanColumns   = []string{"accel_mean"}
	accelP99Columns    = [3][]string{{"accel_p99_x", "p99_x"}, {"accel_p99_y", "p99_y"}, {"accel_p99_z", "p99_z"}}
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000",
}

// CSVResult is the outcome of parsing a telemetry CSV.
type CSVResult struct {
	Events  []Event
	Skipped int
}

// ReadCSV parses telemetry from r. The header row decides which columns are used:
// coordinates come from a JSON "[lat, lon]" column or from latitude/longitude columns.
// Rows with unusable coordinates or timestamps are skipped and counted.
func ReadCSV(r io.Reader) (*CSVResult, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	cols := indexColumns(header)

	if cols.find(timestampColumns) < 0 {
		return nil, fmt.Errorf("%w: timestamp", ErrMissingColumn)
	}
	hasCoordinates := cols.find(coordinatesColumns) >= 0
	hasLatLon := cols.find(latitudeColumns) >= 0 && cols.find(longitudeColumns) >= 0
	if !hasCoordinates && !hasLatLon {
		return nil, fmt.Errorf("%w: coordinates or latitude/longitude", ErrMissingColumn)
	}

	result := &CSVResult{}
	for ordinal := 0; ; ordinal++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv row %d: %w", ordinal+1, err)
		}

		ev, ok := cols.parseRow(record, ordinal)
		if !ok {
			result.Skipped++
			continue
		}
		result.Events = append(result.Events, ev)
	}

	return result, nil
}

type columnIndex map[string]int

func indexColumns(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, exists := idx[key]; !exists {
			idx[key] = i
		}
	}
	return idx
}

func (c columnIndex) find(aliases []string) int {
	for _, a := range aliases {
		if i, ok := c[a]; ok {
			return i
		}
	}
	return -1
}

func (c columnIndex) value(record []string, aliases []string) string {
	i := c.find(aliases)
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (c columnIndex) float(record []string, aliases []string) (float64, bool) {
	raw := c.value(record, aliases)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func (c columnIndex) parseRow(record []string, ordinal int) (Event, bool) {
	ts, err := parseTimestamp(c.value(record, timestampColumns))
	if err != nil {
		return Event{}, false
	}

	point, ok := c.coordinates(record)
	if !ok || point.Validate() != nil {
		return Event{}, false
	}

	ev := Event{
		ID:          c.value(record, idColumns),
		Timestamp:   ts,
		Coordinates: point,
		Behavior:    ParseBehavior(c.value(record, behaviorColumns)),
		ClusterID:   c.value(record, clusterColumns),
		Activity:    c.value(record, activityColumns),
	}
	if ev.ID == "" {
		ev.ID = strconv.Itoa(ordinal)
	}

	if mean, ok := c.float(record, accelMeanColumns); ok {
		stats := &AccelerationStats{Mean: mean}
		for axis, aliases := range accelP99Columns {
			stats.P99[axis], _ = c.float(record, aliases)
		}
		ev.Acceleration = stats
	}

	if score, ok := c.float(record, instabilityColumns); ok {
		ev.InstabilityScore = score
	} else if ev.Acceleration != nil {
		ev.InstabilityScore = ev.Acceleration.Mean
	}
	if ev.InstabilityScore < 0 {
		ev.InstabilityScore = -ev.InstabilityScore
	}

	return ev, true
}

func (c columnIndex) coordinates(record []string) (geo.Point, bool) {
	if raw := c.value(record, coordinatesColumns); raw != "" {
		var pair []float64
		if err := json.Unmarshal([]byte(raw), &pair); err != nil || len(pair) != 2 {
			return geo.Point{}, false
		}
		return geo.Point{Lat: pair[0], Lon: pair[1]}, true
	}

	lat, okLat := c.float(record, latitudeColumns)
	lon, okLon := c.float(record, longitudeColumns)
	if !okLat || !okLon {
		return geo.Point{}, false
	}
	return geo.Point{Lat: lat, Lon: lon}, true
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		whole := int64(secs)
		return time.Unix(whole, int64((secs-float64(whole))*1e9)).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}

// CSVSource loads telemetry from a CSV file on disk.
type CSVSource struct {
	path   string
	logger zerolog.Logger
}

// NewCSVSource creates a CSVSource reading path.
func NewCSVSource(path string, logger zerolog.Logger) *CSVSource {
	return &CSVSource{path: path, logger: logger}
}

// Name returns the source identifier.
func (s *CSVSource) Name() string {
	return "csv:" + s.path
}

// Load reads and parses the file.
func (s *CSVSource) Load(_ context.Context) ([]Event, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("opening telemetry csv: %w", err)
	}
	defer f.Close()

	result, err := ReadCSV(f)
	if err != nil {
		return nil, err
	}

	if result.Skipped > 0 {
		s.logger.Warn().
			Str("path", s.path).
			Int("skipped_rows", result.Skipped).
			Msg("skipped telemetry rows with invalid coordinates or timestamps")
	}
	s.logger.Info().
		Str("path", s.path).
		Int("event_count", len(result.Events)).
		Msg("loaded telemetry csv")

	return result.Events, nil
}
