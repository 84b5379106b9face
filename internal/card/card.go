// Package card renders structured findings into the bounded text block injected
// into completion prompts.
package card

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Finding is a single rendered observation.
type Finding struct {
	// Kind groups findings of the same aggregation, e.g. "hotspot".
	Kind    string `json:"kind"`
	Summary string `json:"summary"`
}

// ContextCard is the formatted context for one query.
type ContextCard struct {
	Title string   `json:"title"`
	Lines []string `json:"lines"`
	// Omitted counts findings dropped to respect the limits.
	Omitted int    `json:"omitted"`
	Notice  string `json:"notice,omitempty"`
}

// Truncated reports whether findings were dropped or shortened.
func (c ContextCard) Truncated() bool {
	return c.Notice != ""
}

// String renders the card. The placeholder for an empty card is only used when
// nothing was omitted.
func (c ContextCard) String() string {
	parts := make([]string, 0, 3)
	if c.Title != "" {
		parts = append(parts, c.Title)
	}
	switch {
	case len(c.Lines) > 0:
		parts = append(parts, strings.Join(c.Lines, "\n"))
	case c.Omitted == 0:
		parts = append(parts, noFindings)
	}
	if c.Notice != "" {
		parts = append(parts, c.Notice)
	}
	return strings.Join(parts, "\n")
}

const (
	noFindings = "No findings."
	ellipsis   = "..."
)

// Config holds formatter limits.
type Config struct {
	// MaxFindings caps the number of numbered lines. Default: 10.
	MaxFindings int
	// MaxChars caps the rendered length in characters. Default: 4000, minimum: MinChars.
	MaxChars int
}

// MinChars is the smallest accepted MaxChars. It leaves room for the truncation
// notice and a shortened title.
const MinChars = 160

// DefaultConfig returns the default limits.
func DefaultConfig() Config {
	return Config{MaxFindings: 10, MaxChars: 4000}
}

// Formatter renders findings into context cards.
type Formatter struct {
	config Config
}

// NewFormatter creates a Formatter. Zero fields take their defaults.
func NewFormatter(config Config) *Formatter {
	if config.MaxFindings <= 0 {
		config.MaxFindings = DefaultConfig().MaxFindings
	}
	if config.MaxChars <= 0 {
		config.MaxChars = DefaultConfig().MaxChars
	}
	if config.MaxChars < MinChars {
		config.MaxChars = MinChars
	}
	return &Formatter{config: config}
}

// Format numbers each finding as "<n>. <summary>" in order. Findings beyond the count
// or length limits are dropped and an explicit notice says how many.
func (f *Formatter) Format(title string, findings []Finding) ContextCard {
	maxNotice := utf8.RuneCountInString(notice(len(findings), len(findings), true))

	// The title never crowds out the notice.
	title = strings.TrimSpace(title)
	if limit := f.config.MaxChars - maxNotice - 2; utf8.RuneCountInString(title) > limit {
		title = truncateRunes(title, limit-len(ellipsis)) + ellipsis
	}
	c := ContextCard{Title: title}

	// Room for the title and the longest possible notice.
	budget := f.config.MaxChars - utf8.RuneCountInString(title) - 1 - maxNotice - 1
	used := 0
	shortened := false

	for i, finding := range findings {
		if i >= f.config.MaxFindings {
			break
		}
		line := fmt.Sprintf("%d. %s", i+1, strings.TrimSpace(finding.Summary))
		cost := utf8.RuneCountInString(line)
		if len(c.Lines) > 0 {
			cost++ // newline
		}
		if used+cost > budget {
			// A first line that is too long on its own is shortened rather than dropped.
			if len(c.Lines) == 0 && budget > len(ellipsis)+3 {
				line = truncateRunes(line, budget-len(ellipsis)) + ellipsis
				c.Lines = append(c.Lines, line)
				shortened = true
			}
			break
		}
		c.Lines = append(c.Lines, line)
		used += cost
	}

	c.Omitted = len(findings) - len(c.Lines)
	if c.Omitted > 0 || shortened {
		c.Notice = notice(c.Omitted, len(findings), shortened)
	}
	return c
}

func notice(omitted, total int, shortened bool) string {
	parts := make([]string, 0, 2)
	if omitted > 0 {
		parts = append(parts, fmt.Sprintf("%d of %d findings omitted", omitted, total))
	}
	if shortened {
		parts = append(parts, "first finding shortened")
	}
	return fmt.Sprintf("[Truncated: %s to fit the context limit.]", strings.Join(parts, ", "))
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
