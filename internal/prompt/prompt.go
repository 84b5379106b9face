// Package prompt holds the completion prompt templates and their placeholder renderer.
package prompt

import (
	"regexp"
)

// Placeholder names.
const (
	Data          = "data"
	UserQuery     = "userQuery"
	ChunkIndex    = "chunkIndex"
	TotalChunks   = "totalChunks"
	ChunkCount    = "chunkCount"
	TruncatedNote = "truncatedNote"
	Context       = "context"
)

// Template is a prompt with {{name}} placeholders.
type Template string

// Values maps placeholder names to replacement text.
type Values map[string]string

var placeholder = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+)\s*\}\}`)

// Render replaces every {{name}} with its value. Placeholders without a value
// render as the empty string. Replacement text is inserted literally and never
// re-scanned for placeholders.
func (t Template) Render(values Values) string {
	return placeholder.ReplaceAllStringFunc(string(t), func(m string) string {
		name := placeholder.FindStringSubmatch(m)[1]
		return values[name]
	})
}

// Built-in templates.
const (
	// Cluster answers a question from a context card.
	Cluster Template = `You are a transportation analyst for the Georgia Tech campus bus system. Use the context card below, built from pre-aggregated bus telemetry, to answer the user's question. Cite the specific locations, times and numbers it contains and do not invent data that is not there. Respond in plain text only with no markdown formatting, bullet points, or special characters, and keep your reply under 200 words.

CONTEXT CARD:
{{context}}

USER QUESTION: {{userQuery}}`

	// Raw answers a question from the full compressed dataset in one request.
	Raw Template = `You are a transportation analyst. You will receive the entire bus telemetry dataset as raw JSON without any preprocessing. Use it to answer the user's question directly, pointing to concrete observations. Respond in plain text only; do not use markdown formatting, bullet points, or special characters; and keep your reply under 200 words.

RAW DATASET (JSON):
{{data}}

USER QUESTION: {{userQuery}}`

	// RawChunk asks for analyst notes on one slice of the dataset.
	RawChunk Template = `You are a transportation analyst reviewing bus telemetry part {{chunkIndex}} of {{totalChunks}}. The data is raw JSON with no preprocessing. Extract concrete observations (locations, timestamps, behaviors) relevant to the user question. Write in plain text with no markdown, lists, or special characters, keep your response under 120 words, note any potential safety concerns, and focus only on this chunk.

RAW DATA CHUNK:
{{data}}

USER QUESTION: {{userQuery}}`

	// RawFinal combines the analyst notes of every chunk into the final answer.
	RawFinal Template = `You previously reviewed {{chunkCount}} raw telemetry chunks. Combine the analyst notes below into one cohesive answer for the user. Reference the question directly, call out specific patterns or anomalies, and keep the response under 220 words. Produce plain text only; no markdown formatting, bullets, or special characters. {{truncatedNote}}

ANALYST NOTES:
{{data}}

USER QUESTION: {{userQuery}}`
)

// Set is the group of templates used by the pipeline.
type Set struct {
	Cluster  Template
	Raw      Template
	RawChunk Template
	RawFinal Template
}

// DefaultSet returns the built-in templates.
func DefaultSet() Set {
	return Set{
		Cluster:  Cluster,
		Raw:      Raw,
		RawChunk: RawChunk,
		RawFinal: RawFinal,
	}
}

// WithDefaults fills empty templates from DefaultSet.
func (s Set) WithDefaults() Set {
	d := DefaultSet()
	if s.Cluster == "" {
		s.Cluster = d.Cluster
	}
	if s.Raw == "" {
		s.Raw = d.Raw
	}
	if s.RawChunk == "" {
		s.RawChunk = d.RawChunk
	}
	if s.RawFinal == "" {
		s.RawFinal = d.RawFinal
	}
	return s
}
