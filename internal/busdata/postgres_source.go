package busdata

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stingsense/stingsense/internal/geo"
)

// PostgresSource loads telemetry from the bus_telemetry table.
type PostgresSource struct {
	pool    *pgxpool.Pool
	routeID string
}

// NewPostgresSource creates a PostgresSource. An empty routeID loads every route.
func NewPostgresSource(pool *pgxpool.Pool, routeID string) *PostgresSource {
	return &PostgresSource{pool: pool, routeID: routeID}
}

// Name returns the source identifier.
func (s *PostgresSource) Name() string {
	if s.routeID == "" {
		return "postgres"
	}
	return "postgres:" + s.routeID
}

// Load reads all events ordered by recording time.
func (s *PostgresSource) Load(ctx context.Context) ([]Event, error) {
	query := `
		SELECT id, recorded_at, latitude, longitude, behavior, instability_score,
		       accel_mean, accel_p99_x, accel_p99_y, accel_p99_z,
		       COALESCE(cluster_id, ''), COALESCE(activity, '')
		FROM bus_telemetry
		WHERE ($1 = '' OR route_id = $1)
		ORDER BY recorded_at, id
	`

	rows, err := s.pool.Query(ctx, query, s.routeID)
	if err != nil {
		return nil, fmt.Errorf("querying bus_telemetry: %w", err)
	}

	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("scanning bus_telemetry: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.CollectableRow) (Event, error) {
	var (
		id         int64
		recordedAt time.Time
		lat, lon   float64
		behavior   string
		score      float64
		accelMean  *float64
		p99        [3]*float64
		ev         Event
	)

	err := row.Scan(
		&id,
		&recordedAt,
		&lat,
		&lon,
		&behavior,
		&score,
		&accelMean,
		&p99[0],
		&p99[1],
		&p99[2],
		&ev.ClusterID,
		&ev.Activity,
	)
	if err != nil {
		return Event{}, err
	}

	ev.ID = strconv.FormatInt(id, 10)
	ev.Timestamp = recordedAt.UTC()
	ev.Coordinates = geo.Point{Lat: lat, Lon: lon}
	ev.Behavior = ParseBehavior(behavior)
	ev.InstabilityScore = score

	if accelMean != nil {
		stats := &AccelerationStats{Mean: *accelMean}
		for axis, v := range p99 {
			if v != nil {
				stats.P99[axis] = *v
			}
		}
		ev.Acceleration = stats
	}

	return ev, nil
}
