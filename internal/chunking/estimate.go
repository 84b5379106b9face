package chunking

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/stingsense/stingsense/internal/busdata"
	"github.com/stingsense/stingsense/internal/prompt"
)

// DefaultPricePerMillionTokens is the input price used by cost estimates, in USD.
const DefaultPricePerMillionTokens = 0.05

// Prompt kinds in a token report.
const (
	PromptSingle    = "single"
	PromptChunk     = "chunk"
	PromptSynthesis = "synthesis"
)

// Question is a question to estimate.
type Question struct {
	ID   string `json:"id"`
	Text string `json:"question"`
}

// PromptEstimate is the size of one prompt raw mode would send.
type PromptEstimate struct {
	Kind   string         `json:"kind"`
	Chunk  int            `json:"chunkIndex,omitempty"`
	Chars  int            `json:"chars"`
	Tokens map[string]int `json:"tokens"`
}

// QuestionEstimate covers every prompt sent for one question.
type QuestionEstimate struct {
	ID          string           `json:"id"`
	Question    string           `json:"question"`
	Mode        Mode             `json:"mode"`
	Chunks      int              `json:"chunks"`
	Prompts     []PromptEstimate `json:"prompts"`
	TotalTokens map[string]int   `json:"totalTokens"`
	CostUSD     float64          `json:"estimatedCostUsd"`
}

// Report is a dry-run estimate of raw-mode prompt sizes.
type Report struct {
	Estimator             string             `json:"estimator"`
	SerializedChars       int                `json:"serializedChars"`
	Budget                int                `json:"budget"`
	ChunkSize             int                `json:"chunkSize"`
	Truncated             bool               `json:"truncated"`
	Warning               string             `json:"warning,omitempty"`
	PricePerMillionTokens float64            `json:"pricePerMillionTokens"`
	Questions             []QuestionEstimate `json:"questions"`
	TotalTokens           map[string]int     `json:"totalTokens"`
	CostUSD               float64            `json:"estimatedCostUsd"`
}

// Estimate renders every prompt Execute would send for each question, without calling
// the provider, and estimates their tokens under every built-in estimator. Synthesis
// prompts use placeholder notes. Cost uses the engine's estimator; a non-positive
// price uses DefaultPricePerMillionTokens.
func (e *Engine) Estimate(events []busdata.Event, questions []Question, pricePerMillion float64) (*Report, error) {
	if pricePerMillion <= 0 {
		pricePerMillion = DefaultPricePerMillionTokens
	}

	plan, err := e.Plan(events)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Estimator:             e.config.Estimator.Name(),
		SerializedChars:       plan.SerializedChars,
		Budget:                plan.Budget,
		ChunkSize:             plan.ChunkSize,
		Truncated:             plan.Truncated,
		Warning:               plan.Warning,
		PricePerMillionTokens: pricePerMillion,
		Questions:             make([]QuestionEstimate, 0, len(questions)),
		TotalTokens:           make(map[string]int),
	}

	for _, q := range questions {
		qe := QuestionEstimate{
			ID:          q.ID,
			Question:    q.Text,
			Mode:        plan.Mode,
			Chunks:      len(plan.Chunks),
			TotalTokens: make(map[string]int),
		}

		for _, text := range e.prompts(plan, q.Text) {
			pe := estimatePrompt(text.kind, text.chunk, text.body)
			qe.Prompts = append(qe.Prompts, pe)
			for name, n := range pe.Tokens {
				qe.TotalTokens[name] += n
				report.TotalTokens[name] += n
			}
		}
		qe.CostUSD = cost(qe.TotalTokens[report.Estimator], pricePerMillion)
		report.Questions = append(report.Questions, qe)
	}

	report.CostUSD = cost(report.TotalTokens[report.Estimator], pricePerMillion)
	return report, nil
}

type renderedPrompt struct {
	kind  string
	chunk int
	body  string
}

func (e *Engine) prompts(plan *Plan, question string) []renderedPrompt {
	if plan.Mode == ModeSingle {
		return []renderedPrompt{{
			kind: PromptSingle,
			body: e.templates.Raw.Render(prompt.Values{
				prompt.Data:      plan.Serialized,
				prompt.UserQuery: question,
			}),
		}}
	}

	out := make([]renderedPrompt, 0, len(plan.Chunks)+1)
	notes := make([]string, len(plan.Chunks))
	for i, c := range plan.Chunks {
		out = append(out, renderedPrompt{
			kind:  PromptChunk,
			chunk: c.Index,
			body: e.templates.RawChunk.Render(prompt.Values{
				prompt.ChunkIndex:  strconv.Itoa(c.Index),
				prompt.TotalChunks: strconv.Itoa(c.Total),
				prompt.Data:        c.Data,
				prompt.UserQuery:   question,
			}),
		})
		notes[i] = fmt.Sprintf("Chunk %d analysis notes...", c.Index)
	}

	combined, truncated := e.combineNotes(notes, len(plan.Chunks))
	var truncatedNote []string
	if plan.Truncated {
		truncatedNote = append(truncatedNote, plan.Warning)
	}
	if truncated {
		truncatedNote = append(truncatedNote, notesTruncatedNote)
	}
	out = append(out, renderedPrompt{
		kind: PromptSynthesis,
		body: e.templates.RawFinal.Render(prompt.Values{
			prompt.ChunkCount:    strconv.Itoa(len(plan.Chunks)),
			prompt.TruncatedNote: strings.Join(truncatedNote, " "),
			prompt.Data:          combined,
			prompt.UserQuery:     question,
		}),
	})
	return out
}

func estimatePrompt(kind string, chunk int, text string) PromptEstimate {
	pe := PromptEstimate{
		Kind:   kind,
		Chunk:  chunk,
		Chars:  utf8.RuneCountInString(text),
		Tokens: make(map[string]int),
	}
	for _, est := range Estimators() {
		pe.Tokens[est.Name()] = est.Estimate(text)
	}
	return pe
}

func cost(tokens int, pricePerMillion float64) float64 {
	return float64(tokens) / 1_000_000 * pricePerMillion
}
