// Package geocontext turns raw coordinates and timestamps into the campus vocabulary
// used in context cards: nearby landmarks, activity periods and expected campus activity.
package geocontext

import (
	"errors"
	"time"

	"github.com/stingsense/stingsense/internal/geo"
)

// Sentinel errors for resolver configuration.
var (
	ErrInvalidLandmark = errors.New("invalid landmark")
	ErrInvalidWindow   = errors.New("invalid time window")
)

// FallbackLocation describes a point that matches no landmark.
const FallbackLocation = "unmapped campus area"

// Kind classifies a landmark.
type Kind string

const (
	KindBuilding         Kind = "building"
	KindIntersection     Kind = "intersection"
	KindTransitStop      Kind = "transitStop"
	KindConstructionZone Kind = "constructionZone"
	KindCrosswalk        Kind = "crosswalk"
	KindDiningArea       Kind = "diningArea"
)

// Valid reports whether k is a known landmark kind.
func (k Kind) Valid() bool {
	switch k {
	case KindBuilding, KindIntersection, KindTransitStop, KindConstructionZone, KindCrosswalk, KindDiningArea:
		return true
	}
	return false
}

// Landmark is a named point of interest matched by point-radius distance.
type Landmark struct {
	Name         string
	Aliases      []string
	Kind         Kind
	Center       geo.Point
	RadiusMeters float64
}

// Match is a landmark whose radius contains a resolved point.
type Match struct {
	Landmark       Landmark
	DistanceMeters float64
}

// LocationDescription is the composite description of a coordinate.
type LocationDescription struct {
	Point geo.Point
	// Matches holds every landmark containing Point, nearest first.
	Matches            []Match
	ConstructionNearby bool
	Text               string
}

// Mapped reports whether the point matched at least one landmark.
func (l LocationDescription) Mapped() bool {
	return len(l.Matches) > 0
}

// Primary returns the nearest matched landmark.
func (l LocationDescription) Primary() (Match, bool) {
	if len(l.Matches) == 0 {
		return Match{}, false
	}
	return l.Matches[0], true
}

// Period is the academic calendar period of a timestamp.
type Period string

const (
	PeriodAcademicYear Period = "academic year"
	PeriodBreak        Period = "academic break"
)

// Activity-pattern descriptors used by the default time table.
const (
	DescriptorWeekend     = "weekend"
	DescriptorMorningRush = "morning rush hour"
	DescriptorLunch       = "lunch hours"
	DescriptorEveningRush = "evening rush hour"
	DescriptorClassHours  = "class hours"
	DescriptorEvening     = "evening"
	DescriptorLateNight   = "late night"
	DescriptorOffPeak     = "off-peak hours"
)

// Wildcard matches any kind or descriptor in a FeatureRule.
const Wildcard = "*"

const defaultTimezone = "America/New_York"

// DaySet selects which days a TimeWindow applies to.
type DaySet string

const (
	AnyDay   DaySet = "any"
	Weekdays DaySet = "weekdays"
	Weekend  DaySet = "weekend"
)

func (d DaySet) includes(wd time.Weekday) bool {
	weekend := wd == time.Saturday || wd == time.Sunday
	switch d {
	case Weekdays:
		return !weekend
	case Weekend:
		return weekend
	default:
		return true
	}
}

// TimeWindow maps an hour range on a set of days to a descriptor.
// The range is [StartHour, EndHour); StartHour > EndHour wraps past midnight.
type TimeWindow struct {
	Days       DaySet
	StartHour  int
	EndHour    int
	Descriptor string
}

func (w TimeWindow) contains(t time.Time) bool {
	if !w.Days.includes(t.Weekday()) {
		return false
	}
	h := t.Hour()
	if w.StartHour <= w.EndHour {
		return h >= w.StartHour && h < w.EndHour
	}
	return h >= w.StartHour || h < w.EndHour
}

// AcademicTerm is an inclusive month/day range during which classes are in session.
type AcademicTerm struct {
	Name       string
	StartMonth time.Month
	StartDay   int
	EndMonth   time.Month
	EndDay     int
}

func (a AcademicTerm) contains(t time.Time) bool {
	md := int(t.Month())*100 + t.Day()
	start := int(a.StartMonth)*100 + a.StartDay
	end := int(a.EndMonth)*100 + a.EndDay
	if start <= end {
		return md >= start && md <= end
	}
	return md >= start || md <= end
}

// TemporalDescription is the activity-pattern description of a timestamp.
type TemporalDescription struct {
	Local      time.Time
	Descriptor string
	Period     Period
	Text       string
}

// FeatureRule maps a landmark kind and temporal descriptor to expected campus activity.
// Kind or Descriptor "*" matches anything.
type FeatureRule struct {
	Kind         Kind
	Descriptor   string
	Activity     string
	AcademicOnly bool
}
