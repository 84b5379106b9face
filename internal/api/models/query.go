package models

import (
	"encoding/json"

	"github.com/stingsense/stingsense/internal/card"
	"github.com/stingsense/stingsense/internal/completion"
)

// QueryRequest is the body of POST /v1/queries. Query is kept raw so a
// non-string value can be reported as a validation error.
type QueryRequest struct {
	Query json.RawMessage `json:"query"`
	Mode  string          `json:"mode,omitempty"`
}

// QueryResponse is an answer to a question.
type QueryResponse struct {
	ID          string           `json:"id"`
	Query       string           `json:"query"`
	Mode        string           `json:"mode"`
	Intent      string           `json:"intent"`
	Answer      string           `json:"answer"`
	ContextCard string           `json:"contextCard,omitempty"`
	Findings    []string         `json:"findings,omitempty"`
	Warnings    []string         `json:"warnings,omitempty"`
	Chunks      int              `json:"chunks,omitempty"`
	Usage       completion.Usage `json:"usage"`
	Model       string           `json:"model,omitempty"`
	Cached      bool             `json:"cached"`
	CreatedAt   Timestamp        `json:"createdAt"`
}

// InsightsResponse wraps the aggregation behind one intent.
type InsightsResponse struct {
	Intent      string           `json:"intent"`
	Title       string           `json:"title"`
	GeneratedAt Timestamp        `json:"generatedAt"`
	Data        any              `json:"data,omitempty"`
	Findings    []card.Finding   `json:"findings"`
	ContextCard card.ContextCard `json:"contextCard"`
}
