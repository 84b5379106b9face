package busdata

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ToGeoJSON converts events to a FeatureCollection of points. Every field other than
// the coordinates becomes a feature property so map tools can style on any of them.
func ToGeoJSON(events []Event) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range events {
		ev := &events[i]

		// GeoJSON positions are [lon, lat].
		f := geojson.NewFeature(orb.Point{ev.Coordinates.Lon, ev.Coordinates.Lat})
		f.Properties["id"] = ev.ID
		f.Properties["timestamp"] = ev.Timestamp.Format("2006-01-02T15:04:05Z07:00")
		f.Properties["behavior"] = string(ev.Behavior)
		f.Properties["instability_score"] = ev.InstabilityScore
		if ev.ClusterID != "" {
			f.Properties["cluster"] = ev.ClusterID
		}
		if ev.Activity != "" {
			f.Properties["activity"] = ev.Activity
		}
		if ev.Acceleration != nil {
			f.Properties["accel_mean"] = ev.Acceleration.Mean
			f.Properties["accel_p99_x"] = ev.Acceleration.P99[0]
			f.Properties["accel_p99_y"] = ev.Acceleration.P99[1]
			f.Properties["accel_p99_z"] = ev.Acceleration.P99[2]
		}
		fc.Append(f)
	}
	return fc
}
