// Package analyst answers natural-language questions about bus telemetry. It validates
// the question, consults the response cache, then either aggregates the data into a
// context card (cluster mode) or hands the raw telemetry to the chunking engine.
package analyst

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stingsense/stingsense/internal/completion"
	"github.com/stingsense/stingsense/internal/query"
)

// Mode selects how a question is answered.
type Mode string

const (
	// ModeCluster answers from pre-aggregated findings.
	ModeCluster Mode = "cluster"
	// ModeRaw answers from the full telemetry, chunked as needed.
	ModeRaw Mode = "raw"
)

// ParseMode parses a mode selector. An empty selector is ModeCluster.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeCluster:
		return ModeCluster, nil
	case ModeRaw:
		return ModeRaw, nil
	default:
		return "", &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("mode must be %q or %q", ModeCluster, ModeRaw),
			Err:     ErrInvalidMode,
		}
	}
}

// MaxQueryLength is the longest question accepted, in characters.
const MaxQueryLength = 1000

// Query is a question to answer.
type Query struct {
	Text string
	Mode Mode
}

// Answer is the response to a Query.
type Answer struct {
	ID        string           `json:"id"`
	Query     string           `json:"query"`
	Mode      Mode             `json:"mode"`
	Intent    query.Intent     `json:"intent"`
	Text      string           `json:"answer"`
	Card      string           `json:"contextCard,omitempty"`
	Findings  []string         `json:"findings,omitempty"`
	Warnings  []string         `json:"warnings,omitempty"`
	Chunks    int              `json:"chunks,omitempty"`
	Usage     completion.Usage `json:"usage"`
	Model     string           `json:"model,omitempty"`
	Cached    bool             `json:"cached"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Sentinel errors.
var (
	ErrEmptyQuery    = errors.New("query is empty")
	ErrQueryTooLong  = errors.New("query is too long")
	ErrInvalidMode   = errors.New("invalid mode")
	ErrNoTelemetry   = errors.New("no telemetry loaded")
	ErrNotConfigured = errors.New("completion service not configured")
)

// Kind classifies failures for the caller.
type Kind string

const (
	// KindValidation is a malformed question. Never retried.
	KindValidation Kind = "validation"
	// KindInsufficientData means there is nothing to analyse.
	KindInsufficientData Kind = "insufficient_data"
	// KindConfiguration means the completion service is not set up.
	KindConfiguration Kind = "configuration"
	// KindUpstream is a failed or incomplete completion call.
	KindUpstream Kind = "upstream"
)

// User-facing messages for errors whose cause must not be exposed.
const (
	MessageUnavailable = "The analysis service is currently unavailable. Please try again later."
	MessageUpstream    = "The analysis could not be completed because a dependent service failed. Please try again shortly."
	MessageNoTelemetry = "No telemetry is available to analyse."
)

// Error is a classified pipeline failure. Message is safe to show to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
