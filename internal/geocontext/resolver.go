package geocontext

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/stingsense/stingsense/internal/geo"
)

// Config holds the static reference data for a Resolver.
type Config struct {
	Landmarks   []Landmark
	TimeWindows []TimeWindow
	Terms       []AcademicTerm
	Rules       []FeatureRule

	// Timezone is the IANA zone used for hour-of-day and day-of-week (default: America/New_York).
	Timezone string
	// Location overrides Timezone when set.
	Location *time.Location
}

// Resolver maps coordinates and timestamps to campus context.
// It is safe for concurrent use: all state is read-only after construction.
type Resolver struct {
	landmarks []Landmark
	windows   []TimeWindow
	terms     []AcademicTerm
	rules     []FeatureRule
	location  *time.Location
}

// NewResolver validates cfg and builds a Resolver. Nil tables fall back to the defaults;
// an explicitly empty landmark table is allowed.
func NewResolver(cfg Config) (*Resolver, error) {
	if cfg.Landmarks == nil {
		cfg.Landmarks = DefaultLandmarks()
	}
	if cfg.TimeWindows == nil {
		cfg.TimeWindows = DefaultTimeWindows()
	}
	if cfg.Terms == nil {
		cfg.Terms = DefaultAcademicTerms()
	}
	if cfg.Rules == nil {
		cfg.Rules = DefaultFeatureRules()
	}

	for i := range cfg.Landmarks {
		if err := validateLandmark(&cfg.Landmarks[i]); err != nil {
			return nil, err
		}
	}
	for _, w := range cfg.TimeWindows {
		if w.StartHour < 0 || w.StartHour > 24 || w.EndHour < 0 || w.EndHour > 24 || w.Descriptor == "" {
			return nil, fmt.Errorf("%w: %+v", ErrInvalidWindow, w)
		}
	}

	loc := cfg.Location
	if loc == nil {
		tz := cfg.Timezone
		if tz == "" {
			tz = defaultTimezone
		}
		var err error
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("loading timezone %q: %w", tz, err)
		}
	}

	return &Resolver{
		landmarks: append([]Landmark(nil), cfg.Landmarks...),
		windows:   append([]TimeWindow(nil), cfg.TimeWindows...),
		terms:     append([]AcademicTerm(nil), cfg.Terms...),
		rules:     append([]FeatureRule(nil), cfg.Rules...),
		location:  loc,
	}, nil
}

func validateLandmark(l *Landmark) error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidLandmark)
	}
	if !l.Kind.Valid() {
		return fmt.Errorf("%w: %s has unknown kind %q", ErrInvalidLandmark, l.Name, l.Kind)
	}
	if l.RadiusMeters <= 0 {
		return fmt.Errorf("%w: %s has non-positive radius", ErrInvalidLandmark, l.Name)
	}
	if err := l.Center.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidLandmark, l.Name, err)
	}
	return nil
}

// Landmarks returns the configured landmarks. The slice must not be modified.
func (r *Resolver) Landmarks() []Landmark {
	return r.landmarks
}

// Location returns the timezone used for temporal resolution.
func (r *Resolver) Location() *time.Location {
	return r.location
}

// ResolveLocation describes p by every landmark whose radius contains it.
func (r *Resolver) ResolveLocation(p geo.Point) LocationDescription {
	desc := LocationDescription{Point: p}

	for _, l := range r.landmarks {
		d := geo.Distance(p, l.Center)
		if d > l.RadiusMeters {
			continue
		}
		desc.Matches = append(desc.Matches, Match{Landmark: l, DistanceMeters: d})
		if l.Kind == KindConstructionZone {
			desc.ConstructionNearby = true
		}
	}

	sort.SliceStable(desc.Matches, func(i, j int) bool {
		if desc.Matches[i].DistanceMeters != desc.Matches[j].DistanceMeters {
			return desc.Matches[i].DistanceMeters < desc.Matches[j].DistanceMeters
		}
		return desc.Matches[i].Landmark.Name < desc.Matches[j].Landmark.Name
	})

	desc.Text = describeMatches(desc.Matches, desc.ConstructionNearby)
	return desc
}

func describeMatches(matches []Match, construction bool) string {
	if len(matches) == 0 {
		return FallbackLocation
	}

	var b strings.Builder
	b.WriteString("near ")
	b.WriteString(matches[0].Landmark.Name)

	if len(matches) > 1 {
		names := make([]string, 0, len(matches)-1)
		for _, m := range matches[1:] {
			names = append(names, m.Landmark.Name)
		}
		b.WriteString(", close to ")
		b.WriteString(strings.Join(names, ", "))
	}

	if construction {
		b.WriteString(" (construction zone nearby)")
	}
	return b.String()
}

// ResolveTime describes t by the first matching time window and the academic period.
func (r *Resolver) ResolveTime(t time.Time) TemporalDescription {
	local := t.In(r.location)

	descriptor := DescriptorOffPeak
	for _, w := range r.windows {
		if w.contains(local) {
			descriptor = w.Descriptor
			break
		}
	}

	period := PeriodBreak
	for _, term := range r.terms {
		if term.contains(local) {
			period = PeriodAcademicYear
			break
		}
	}

	return TemporalDescription{
		Local:      local,
		Descriptor: descriptor,
		Period:     period,
		Text:       fmt.Sprintf("%s %s during the %s", local.Weekday(), descriptor, period),
	}
}

// ResolveCampusFeature cross-references the matched landmarks (nearest first) with the
// rule table. It returns "" when nothing applies.
func (r *Resolver) ResolveCampusFeature(loc LocationDescription, temporal TemporalDescription) string {
	for _, m := range loc.Matches {
		for _, rule := range r.rules {
			if rule.Kind != Wildcard && rule.Kind != m.Landmark.Kind {
				continue
			}
			if rule.Descriptor != Wildcard && rule.Descriptor != temporal.Descriptor {
				continue
			}
			if rule.AcademicOnly && temporal.Period != PeriodAcademicYear {
				continue
			}
			return rule.Activity
		}
	}
	return ""
}

// FindLandmark returns the landmark whose name or alias appears in text.
// Longer names win so "Tech Square trolley stop" beats "Tech Square".
func (r *Resolver) FindLandmark(text string) (Landmark, bool) {
	lower := strings.ToLower(text)

	var (
		best    Landmark
		bestLen int
	)
	for _, l := range r.landmarks {
		for _, name := range append([]string{l.Name}, l.Aliases...) {
			n := strings.ToLower(name)
			if n != "" && len(n) > bestLen && strings.Contains(lower, n) {
				best, bestLen = l, len(n)
			}
		}
	}
	return best, bestLen > 0
}
