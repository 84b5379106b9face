package geocontext

import (
	"time"

	"github.com/stingsense/stingsense/internal/geo"
)

// DefaultConfig returns the Georgia Tech campus configuration.
func DefaultConfig() Config {
	return Config{
		Landmarks:   DefaultLandmarks(),
		TimeWindows: DefaultTimeWindows(),
		Terms:       DefaultAcademicTerms(),
		Rules:       DefaultFeatureRules(),
		Timezone:    defaultTimezone,
	}
}

// DefaultLandmarks returns the campus landmarks along the bus routes.
func DefaultLandmarks() []Landmark {
	return []Landmark{
		{
			Name:         "Klaus Advanced Computing Building",
			Aliases:      []string{"klaus"},
			Kind:         KindBuilding,
			Center:       geo.Point{Lat: 33.7771, Lon: -84.3962},
			RadiusMeters: 120,
		},
		{
			Name:         "Student Center",
			Aliases:      []string{"john lewis student center"},
			Kind:         KindBuilding,
			Center:       geo.Point{Lat: 33.7740, Lon: -84.3986},
			RadiusMeters: 120,
		},
		{
			Name:         "Tech Square",
			Aliases:      []string{"technology square"},
			Kind:         KindDiningArea,
			Center:       geo.Point{Lat: 33.7767, Lon: -84.3894},
			RadiusMeters: 150,
		},
		{
			Name:         "Campus Recreation Center",
			Aliases:      []string{"crc"},
			Kind:         KindBuilding,
			Center:       geo.Point{Lat: 33.7756, Lon: -84.4037},
			RadiusMeters: 120,
		},
		{
			Name:         "Price Gilbert Library",
			Aliases:      []string{"library"},
			Kind:         KindBuilding,
			Center:       geo.Point{Lat: 33.7744, Lon: -84.3957},
			RadiusMeters: 100,
		},
		{
			Name:         "North Avenue Dining Hall",
			Aliases:      []string{"north ave dining"},
			Kind:         KindDiningArea,
			Center:       geo.Point{Lat: 33.7712, Lon: -84.3912},
			RadiusMeters: 90,
		},
		{
			Name:         "West Village Dining Commons",
			Aliases:      []string{"west village"},
			Kind:         KindDiningArea,
			Center:       geo.Point{Lat: 33.7794, Lon: -84.4048},
			RadiusMeters: 90,
		},
		{
			Name:         "Ferst Drive and State Street",
			Kind:         KindIntersection,
			Center:       geo.Point{Lat: 33.7781, Lon: -84.3989},
			RadiusMeters: 50,
		},
		{
			Name:         "North Avenue and Techwood Drive",
			Kind:         KindIntersection,
			Center:       geo.Point{Lat: 33.7714, Lon: -84.3926},
			RadiusMeters: 50,
		},
		{
			Name:         "Tech Square trolley stop",
			Kind:         KindTransitStop,
			Center:       geo.Point{Lat: 33.7762, Lon: -84.3891},
			RadiusMeters: 60,
		},
		{
			Name:         "Midtown MARTA station",
			Aliases:      []string{"marta"},
			Kind:         KindTransitStop,
			Center:       geo.Point{Lat: 33.7810, Lon: -84.3863},
			RadiusMeters: 80,
		},
		{
			Name:         "Ferst Drive crosswalk",
			Kind:         KindCrosswalk,
			Center:       geo.Point{Lat: 33.7745, Lon: -84.3990},
			RadiusMeters: 40,
		},
		{
			Name:         "Tech Parkway construction",
			Kind:         KindConstructionZone,
			Center:       geo.Point{Lat: 33.7787, Lon: -84.4010},
			RadiusMeters: 100,
		},
	}
}

// DefaultTimeWindows returns the ordered hour-range table. First match wins, so the
// narrower weekday windows precede the broad class-hours window.
func DefaultTimeWindows() []TimeWindow {
	return []TimeWindow{
		{Days: Weekend, StartHour: 0, EndHour: 24, Descriptor: DescriptorWeekend},
		{Days: Weekdays, StartHour: 7, EndHour: 9, Descriptor: DescriptorMorningRush},
		{Days: Weekdays, StartHour: 11, EndHour: 14, Descriptor: DescriptorLunch},
		{Days: Weekdays, StartHour: 16, EndHour: 18, Descriptor: DescriptorEveningRush},
		{Days: Weekdays, StartHour: 9, EndHour: 16, Descriptor: DescriptorClassHours},
		{Days: Weekdays, StartHour: 18, EndHour: 22, Descriptor: DescriptorEvening},
		{Days: AnyDay, StartHour: 22, EndHour: 7, Descriptor: DescriptorLateNight},
	}
}

// DefaultAcademicTerms returns the fall and spring semesters.
func DefaultAcademicTerms() []AcademicTerm {
	return []AcademicTerm{
		{Name: "fall", StartMonth: time.August, StartDay: 15, EndMonth: time.December, EndDay: 15},
		{Name: "spring", StartMonth: time.January, StartDay: 6, EndMonth: time.May, EndDay: 5},
	}
}

// DefaultFeatureRules returns the landmark kind × descriptor activity table.
func DefaultFeatureRules() []FeatureRule {
	return []FeatureRule{
		{Kind: KindConstructionZone, Descriptor: Wildcard, Activity: "lane restrictions and construction vehicles"},
		{Kind: KindBuilding, Descriptor: DescriptorClassHours, Activity: "high pedestrian traffic between classes", AcademicOnly: true},
		{Kind: KindBuilding, Descriptor: DescriptorLunch, Activity: "students moving between classes and lunch", AcademicOnly: true},
		{Kind: KindDiningArea, Descriptor: DescriptorLunch, Activity: "heavy foot traffic around dining areas"},
		{Kind: KindDiningArea, Descriptor: DescriptorEvening, Activity: "dinner crowds near dining areas"},
		{Kind: KindTransitStop, Descriptor: DescriptorMorningRush, Activity: "crowded boarding at transit stops"},
		{Kind: KindTransitStop, Descriptor: DescriptorEveningRush, Activity: "crowded boarding at transit stops"},
		{Kind: KindIntersection, Descriptor: DescriptorMorningRush, Activity: "commuter congestion at intersections"},
		{Kind: KindIntersection, Descriptor: DescriptorEveningRush, Activity: "commuter congestion at intersections"},
		{Kind: KindCrosswalk, Descriptor: DescriptorClassHours, Activity: "frequent pedestrian crossings", AcademicOnly: true},
		{Kind: KindCrosswalk, Descriptor: DescriptorLunch, Activity: "frequent pedestrian crossings"},
		{Kind: Wildcard, Descriptor: DescriptorLateNight, Activity: "light traffic with reduced visibility"},
	}
}
