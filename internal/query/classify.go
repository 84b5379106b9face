// Package query classifies free-text questions and dispatches them to the matching
// aggregation.
package query

import (
	"strings"
)

// Intent is the analytic category of a question.
type Intent string

const (
	IntentAggressiveDriving Intent = "aggressiveDriving"
	IntentDwellTime         Intent = "dwellTime"
	IntentRouteEfficiency   Intent = "routeEfficiency"
	IntentGeneralInfo       Intent = "generalInfo"
)

// Priority orders intents for tie-breaking, highest first.
var Priority = []Intent{
	IntentAggressiveDriving,
	IntentDwellTime,
	IntentRouteEfficiency,
	IntentGeneralInfo,
}

// Valid reports whether i is a known intent.
func (i Intent) Valid() bool {
	for _, p := range Priority {
		if i == p {
			return true
		}
	}
	return false
}

// KeywordTable maps each intent to the lower-case substrings that vote for it.
type KeywordTable map[Intent][]string

// DefaultKeywords returns the built-in keyword table.
func DefaultKeywords() KeywordTable {
	return KeywordTable{
		IntentAggressiveDriving: {
			"aggressive", "dangerous", "unsafe", "brak", "hardest", "harsh", "swerv",
			"speeding", "too fast", "accelerat", "hotspot", "risky", "safety", "jerk",
		},
		IntentDwellTime: {
			"dwell", "wait", "stop", "idle", "pause", "linger", "how long", "delay", "stuck",
		},
		IntentRouteEfficiency: {
			"efficien", "route", "distance", "direct", "detour", "straight", "path", "travel",
		},
		IntentGeneralInfo: {
			"how many", "count", "total", "overview", "summary", "pattern", "behavior",
			"instances", "general",
		},
	}
}

// Classification is the outcome of scoring a question.
type Classification struct {
	Intent Intent         `json:"intent"`
	Scores map[Intent]int `json:"scores"`
}

// Classifier is a bag-of-keywords intent classifier.
type Classifier struct {
	keywords KeywordTable
}

// NewClassifier creates a classifier over table. A nil table uses DefaultKeywords.
func NewClassifier(table KeywordTable) *Classifier {
	if table == nil {
		table = DefaultKeywords()
	}
	normalized := make(KeywordTable, len(table))
	for intent, words := range table {
		for _, w := range words {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				normalized[intent] = append(normalized[intent], w)
			}
		}
	}
	return &Classifier{keywords: normalized}
}

// Classify counts keyword occurrences per intent and returns the highest scorer.
// Ties follow Priority; no matches at all yields IntentGeneralInfo.
func (c *Classifier) Classify(text string) Classification {
	lower := strings.ToLower(text)

	scores := make(map[Intent]int, len(Priority))
	for _, intent := range Priority {
		for _, w := range c.keywords[intent] {
			scores[intent] += strings.Count(lower, w)
		}
	}

	best, bestScore := IntentGeneralInfo, 0
	for _, intent := range Priority {
		if scores[intent] > bestScore {
			best, bestScore = intent, scores[intent]
		}
	}
	return Classification{Intent: best, Scores: scores}
}

var defaultClassifier = NewClassifier(nil)

// Classify classifies text with the default keyword table.
func Classify(text string) Intent {
	return defaultClassifier.Classify(text).Intent
}
