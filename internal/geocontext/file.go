package geocontext

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stingsense/stingsense/internal/geo"
)

// fileConfig is the YAML layout of a campus reference file.
// Omitted sections keep the defaults.
type fileConfig struct {
	Timezone  string `yaml:"timezone"`
	Landmarks []struct {
		Name    string   `yaml:"name"`
		Aliases []string `yaml:"aliases"`
		Kind    Kind     `yaml:"kind"`
		Lat     float64  `yaml:"lat"`
		Lon     float64  `yaml:"lon"`
		Radius  float64  `yaml:"radius"`
	} `yaml:"landmarks"`
	TimeWindows []struct {
		Days       DaySet `yaml:"days"`
		Start      int    `yaml:"start"`
		End        int    `yaml:"end"`
		Descriptor string `yaml:"descriptor"`
	} `yaml:"timeWindows"`
	Terms []struct {
		Name  string `yaml:"name"`
		Start string `yaml:"start"` // MM-DD
		End   string `yaml:"end"`   // MM-DD
	} `yaml:"terms"`
	Rules []struct {
		Kind         Kind   `yaml:"kind"`
		Descriptor   string `yaml:"descriptor"`
		Activity     string `yaml:"activity"`
		AcademicOnly bool   `yaml:"academicOnly"`
	} `yaml:"rules"`
}

// LoadConfigFile reads a YAML campus reference file.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading campus file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML campus reference data on top of DefaultConfig.
func ParseConfig(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("parsing campus file: %w", err)
	}

	cfg := DefaultConfig()
	if fc.Timezone != "" {
		cfg.Timezone = fc.Timezone
	}

	if fc.Landmarks != nil {
		cfg.Landmarks = make([]Landmark, 0, len(fc.Landmarks))
		for _, l := range fc.Landmarks {
			cfg.Landmarks = append(cfg.Landmarks, Landmark{
				Name:         l.Name,
				Aliases:      l.Aliases,
				Kind:         l.Kind,
				Center:       geo.Point{Lat: l.Lat, Lon: l.Lon},
				RadiusMeters: l.Radius,
			})
		}
	}

	if fc.TimeWindows != nil {
		cfg.TimeWindows = make([]TimeWindow, 0, len(fc.TimeWindows))
		for _, w := range fc.TimeWindows {
			days := w.Days
			if days == "" {
				days = AnyDay
			}
			cfg.TimeWindows = append(cfg.TimeWindows, TimeWindow{
				Days:       days,
				StartHour:  w.Start,
				EndHour:    w.End,
				Descriptor: w.Descriptor,
			})
		}
	}

	if fc.Terms != nil {
		cfg.Terms = make([]AcademicTerm, 0, len(fc.Terms))
		for _, t := range fc.Terms {
			start, err := time.Parse("01-02", t.Start)
			if err != nil {
				return Config{}, fmt.Errorf("term %q start: %w", t.Name, err)
			}
			end, err := time.Parse("01-02", t.End)
			if err != nil {
				return Config{}, fmt.Errorf("term %q end: %w", t.Name, err)
			}
			cfg.Terms = append(cfg.Terms, AcademicTerm{
				Name:       t.Name,
				StartMonth: start.Month(),
				StartDay:   start.Day(),
				EndMonth:   end.Month(),
				EndDay:     end.Day(),
			})
		}
	}

	if fc.Rules != nil {
		cfg.Rules = make([]FeatureRule, 0, len(fc.Rules))
		for _, r := range fc.Rules {
			cfg.Rules = append(cfg.Rules, FeatureRule(r))
		}
	}

	return cfg, nil
}
