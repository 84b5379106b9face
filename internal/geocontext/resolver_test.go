package geocontext_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stingsense/stingsense/internal/geo"
	"github.com/stingsense/stingsense/internal/geocontext"
)

var campusZone = time.FixedZone("EDT", -4*3600)

func newResolver(t *testing.T, cfg geocontext.Config) *geocontext.Resolver {
	t.Helper()
	cfg.Location = campusZone
	r, err := geocontext.NewResolver(cfg)
	require.NoError(t, err)
	return r
}

// north returns the point the given distance due north of p.
func north(p geo.Point, meters float64) geo.Point {
	return geo.Point{Lat: p.Lat + meters/111195.0, Lon: p.Lon}
}

func TestResolveLocation_InsideRadiusIncludesLandmark(t *testing.T) {
	r := newResolver(t, geocontext.Config{})

	for _, l := range r.Landmarks() {
		for _, fraction := range []float64{0, 0.25, 0.5, 0.9} {
			p := north(l.Center, l.RadiusMeters*fraction)
			desc := r.ResolveLocation(p)

			names := make([]string, 0, len(desc.Matches))
			for _, m := range desc.Matches {
				names = append(names, m.Landmark.Name)
			}
			assert.Contains(t, names, l.Name, "point at %.0f%% of radius should match %s", fraction*100, l.Name)
		}
	}
}

func TestResolveLocation_OutsideEveryRadiusFallsBack(t *testing.T) {
	single := geocontext.Landmark{
		Name:         "Klaus",
		Kind:         geocontext.KindBuilding,
		Center:       geo.Point{Lat: 33.7771, Lon: -84.3962},
		RadiusMeters: 100,
	}
	r := newResolver(t, geocontext.Config{Landmarks: []geocontext.Landmark{single}})

	for _, meters := range []float64{101, 150, 1000} {
		desc := r.ResolveLocation(north(single.Center, meters))
		assert.False(t, desc.Mapped())
		assert.Equal(t, geocontext.FallbackLocation, desc.Text)
	}

	far := newResolver(t, geocontext.Config{}).ResolveLocation(geo.Point{Lat: 33.9, Lon: -84.2})
	assert.Equal(t, "unmapped campus area", far.Text)
}

func TestResolveLocation_CompositeDescription(t *testing.T) {
	center := geo.Point{Lat: 33.7771, Lon: -84.3962}
	landmarks := []geocontext.Landmark{
		{Name: "Far Hall", Kind: geocontext.KindBuilding, Center: north(center, 80), RadiusMeters: 200},
		{Name: "Near Hall", Kind: geocontext.KindBuilding, Center: north(center, 10), RadiusMeters: 50},
		{Name: "Road Works", Kind: geocontext.KindConstructionZone, Center: north(center, 40), RadiusMeters: 60},
		{Name: "Elsewhere", Kind: geocontext.KindDiningArea, Center: north(center, 5000), RadiusMeters: 60},
	}
	r := newResolver(t, geocontext.Config{Landmarks: landmarks})

	desc := r.ResolveLocation(center)

	require.Len(t, desc.Matches, 3)
	assert.Equal(t, "Near Hall", desc.Matches[0].Landmark.Name)
	assert.Equal(t, "Road Works", desc.Matches[1].Landmark.Name)
	assert.Equal(t, "Far Hall", desc.Matches[2].Landmark.Name)
	assert.True(t, desc.ConstructionNearby)
	assert.Equal(t, "near Near Hall, close to Road Works, Far Hall (construction zone nearby)", desc.Text)

	primary, ok := desc.Primary()
	require.True(t, ok)
	assert.InDelta(t, 10, primary.DistanceMeters, 0.5)
}

func TestResolveLocation_Deterministic(t *testing.T) {
	r := newResolver(t, geocontext.Config{})
	p := geo.Point{Lat: 33.7745, Lon: -84.3990}
	assert.Equal(t, r.ResolveLocation(p), r.ResolveLocation(p))
}

func TestResolveTime(t *testing.T) {
	r := newResolver(t, geocontext.Config{})

	tests := []struct {
		name       string
		at         time.Time
		descriptor string
		period     geocontext.Period
	}{
		{"weekday morning", time.Date(2024, 10, 24, 8, 15, 0, 0, campusZone), geocontext.DescriptorMorningRush, geocontext.PeriodAcademicYear},
		{"weekday class", time.Date(2024, 10, 24, 10, 0, 0, 0, campusZone), geocontext.DescriptorClassHours, geocontext.PeriodAcademicYear},
		{"weekday lunch", time.Date(2024, 10, 24, 12, 30, 0, 0, campusZone), geocontext.DescriptorLunch, geocontext.PeriodAcademicYear},
		{"weekday afternoon class", time.Date(2024, 10, 24, 15, 0, 0, 0, campusZone), geocontext.DescriptorClassHours, geocontext.PeriodAcademicYear},
		{"weekday evening rush", time.Date(2024, 10, 24, 17, 0, 0, 0, campusZone), geocontext.DescriptorEveningRush, geocontext.PeriodAcademicYear},
		{"weekday evening", time.Date(2024, 10, 24, 19, 0, 0, 0, campusZone), geocontext.DescriptorEvening, geocontext.PeriodAcademicYear},
		{"late night wraps midnight", time.Date(2024, 10, 24, 2, 0, 0, 0, campusZone), geocontext.DescriptorLateNight, geocontext.PeriodAcademicYear},
		{"saturday", time.Date(2024, 10, 26, 12, 0, 0, 0, campusZone), geocontext.DescriptorWeekend, geocontext.PeriodAcademicYear},
		{"summer break", time.Date(2024, 7, 10, 12, 0, 0, 0, campusZone), geocontext.DescriptorLunch, geocontext.PeriodBreak},
		{"winter break", time.Date(2024, 12, 24, 10, 0, 0, 0, campusZone), geocontext.DescriptorClassHours, geocontext.PeriodBreak},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := r.ResolveTime(tt.at)
			assert.Equal(t, tt.descriptor, desc.Descriptor)
			assert.Equal(t, tt.period, desc.Period)
		})
	}
}

func TestResolveTime_ConvertsToCampusZone(t *testing.T) {
	r := newResolver(t, geocontext.Config{})

	// 16:30 UTC is 12:30 on campus.
	desc := r.ResolveTime(time.Date(2024, 10, 24, 16, 30, 0, 0, time.UTC))
	assert.Equal(t, geocontext.DescriptorLunch, desc.Descriptor)
	assert.Equal(t, "Thursday lunch hours during the academic year", desc.Text)
}

func TestResolveCampusFeature(t *testing.T) {
	r := newResolver(t, geocontext.Config{})
	klaus := r.ResolveLocation(geo.Point{Lat: 33.7771, Lon: -84.3962})

	classTime := r.ResolveTime(time.Date(2024, 10, 24, 10, 0, 0, 0, campusZone))
	assert.Equal(t, "high pedestrian traffic between classes", r.ResolveCampusFeature(klaus, classTime))

	breakTime := r.ResolveTime(time.Date(2024, 7, 10, 10, 0, 0, 0, campusZone))
	assert.Empty(t, r.ResolveCampusFeature(klaus, breakTime), "academic-only rules do not apply during break")

	unmapped := r.ResolveLocation(geo.Point{Lat: 33.9, Lon: -84.2})
	assert.Empty(t, r.ResolveCampusFeature(unmapped, classTime))

	construction := r.ResolveLocation(geo.Point{Lat: 33.7787, Lon: -84.4010})
	assert.Equal(t, "lane restrictions and construction vehicles", r.ResolveCampusFeature(construction, breakTime))

	lateNight := r.ResolveTime(time.Date(2024, 10, 24, 23, 0, 0, 0, campusZone))
	assert.Equal(t, "light traffic with reduced visibility", r.ResolveCampusFeature(klaus, lateNight))
}

func TestFindLandmark(t *testing.T) {
	r := newResolver(t, geocontext.Config{})

	l, ok := r.FindLandmark("What are the driving patterns like around Tech Square")
	require.True(t, ok)
	assert.Equal(t, "Tech Square", l.Name)

	l, ok = r.FindLandmark("anything odd at the tech square trolley stop?")
	require.True(t, ok)
	assert.Equal(t, "Tech Square trolley stop", l.Name)

	l, ok = r.FindLandmark("how busy is the CRC")
	require.True(t, ok)
	assert.Equal(t, "Campus Recreation Center", l.Name)

	_, ok = r.FindLandmark("how efficient was the route")
	assert.False(t, ok)
}

func TestNewResolver_Validation(t *testing.T) {
	tests := []struct {
		name     string
		landmark geocontext.Landmark
	}{
		{"empty name", geocontext.Landmark{Kind: geocontext.KindBuilding, RadiusMeters: 10}},
		{"bad kind", geocontext.Landmark{Name: "x", Kind: "castle", RadiusMeters: 10}},
		{"zero radius", geocontext.Landmark{Name: "x", Kind: geocontext.KindBuilding}},
		{"bad center", geocontext.Landmark{Name: "x", Kind: geocontext.KindBuilding, RadiusMeters: 10, Center: geo.Point{Lat: 100}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := geocontext.NewResolver(geocontext.Config{
				Landmarks: []geocontext.Landmark{tt.landmark},
				Location:  campusZone,
			})
			assert.ErrorIs(t, err, geocontext.ErrInvalidLandmark)
		})
	}

	_, err := geocontext.NewResolver(geocontext.Config{
		TimeWindows: []geocontext.TimeWindow{{StartHour: 3, EndHour: 30, Descriptor: "x"}},
		Location:    campusZone,
	})
	assert.ErrorIs(t, err, geocontext.ErrInvalidWindow)
}

func TestParseConfig(t *testing.T) {
	data := []byte(`
timezone: UTC
landmarks:
  - name: Bus Depot
    aliases: [depot]
    kind: transitStop
    lat: 33.78
    lon: -84.40
    radius: 75
terms:
  - name: summer
    start: "05-15"
    end: "07-31"
rules:
  - kind: transitStop
    descriptor: "*"
    activity: buses queueing at the depot
`)

	cfg, err := geocontext.ParseConfig(data)
	require.NoError(t, err)
	assert.Equal(t, "UTC", cfg.Timezone)
	require.Len(t, cfg.Landmarks, 1)
	assert.Equal(t, geocontext.KindTransitStop, cfg.Landmarks[0].Kind)
	assert.Equal(t, geocontext.DefaultTimeWindows(), cfg.TimeWindows, "omitted sections keep defaults")

	r, err := geocontext.NewResolver(cfg)
	require.NoError(t, err)

	loc := r.ResolveLocation(geo.Point{Lat: 33.78, Lon: -84.40})
	temporal := r.ResolveTime(time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "near Bus Depot", loc.Text)
	assert.Equal(t, geocontext.PeriodAcademicYear, temporal.Period)
	assert.Equal(t, "buses queueing at the depot", r.ResolveCampusFeature(loc, temporal))
}

func TestParseConfig_BadTerm(t *testing.T) {
	_, err := geocontext.ParseConfig([]byte("terms:\n  - name: x\n    start: \"13-40\"\n    end: \"01-01\"\n"))
	assert.Error(t, err)
}
