// Package chunking answers raw-mode questions by sending the compressed telemetry to
// the completion service, split into ordered chunks with a synthesis pass when it
// does not fit in a single request.
package chunking

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/stingsense/stingsense/internal/busdata"
	"github.com/stingsense/stingsense/internal/completion"
	"github.com/stingsense/stingsense/internal/prompt"
)

// ErrNoProvider is returned by Execute when no completion provider is configured.
var ErrNoProvider = errors.New("no completion provider")

// Mode is the request shape chosen for a dataset.
type Mode string

const (
	ModeSingle Mode = "single-request"
	ModeMulti  Mode = "multi-chunk"
)

// Config holds configuration for the Engine.
type Config struct {
	// SingleRequestChars is the largest serialized dataset sent in one request.
	// Default: 11000
	SingleRequestChars int

	// MaxInputTokens further limits the budget to what Estimator allows for this
	// many tokens. A negative value disables the token limit.
	// Default: 3000
	MaxInputTokens int

	// ChunkRatio sizes chunks as a fraction of the budget, leaving room for the
	// prompt template. Default: 0.8
	ChunkRatio float64

	// MaxChunks caps the number of chunk calls. Data beyond the cap is dropped
	// with a warning. Default: 20
	MaxChunks int

	// SynthesisChars bounds the analyst notes passed to the synthesis call.
	// Default: 24000
	SynthesisChars int

	// Prefetch is how many chunk calls may run ahead of the one being awaited.
	// Zero issues calls strictly one at a time.
	Prefetch int

	// Estimator converts the token limit into characters. Default: CharsPerToken.
	Estimator Estimator

	// Model and MaxOutputTokens are passed through on every completion request.
	Model           string
	MaxOutputTokens int

	// Templates are the raw-mode prompts. Empty templates use the built-ins.
	Templates prompt.Set

	// Provider answers every prompt.
	Provider completion.Provider

	// Logger for engine operations.
	Logger zerolog.Logger
}

// DefaultConfig returns the default engine limits.
func DefaultConfig() Config {
	return Config{
		SingleRequestChars: 11000,
		MaxInputTokens:     3000,
		ChunkRatio:         0.8,
		MaxChunks:          20,
		SynthesisChars:     24000,
		Estimator:          CharsPerToken{},
	}
}

// Engine plans and executes raw-mode requests. It holds no per-request state and is
// safe for concurrent use.
type Engine struct {
	config    Config
	templates prompt.Set
	provider  completion.Provider
	logger    zerolog.Logger
}

// NewEngine creates an Engine. Zero limits take their defaults.
func NewEngine(cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.SingleRequestChars <= 0 {
		cfg.SingleRequestChars = defaults.SingleRequestChars
	}
	if cfg.MaxInputTokens == 0 {
		cfg.MaxInputTokens = defaults.MaxInputTokens
	}
	if cfg.ChunkRatio <= 0 || cfg.ChunkRatio > 1 {
		cfg.ChunkRatio = defaults.ChunkRatio
	}
	if cfg.MaxChunks <= 0 {
		cfg.MaxChunks = defaults.MaxChunks
	}
	if cfg.SynthesisChars <= 0 {
		cfg.SynthesisChars = defaults.SynthesisChars
	}
	if cfg.Prefetch < 0 {
		cfg.Prefetch = 0
	}
	if cfg.Estimator == nil {
		cfg.Estimator = defaults.Estimator
	}

	return &Engine{
		config:    cfg,
		templates: cfg.Templates.WithDefaults(),
		provider:  cfg.Provider,
		logger:    cfg.Logger,
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Budget returns the single-request budget in characters.
func (e *Engine) Budget() int {
	budget := e.config.SingleRequestChars
	if e.config.MaxInputTokens > 0 {
		if byTokens := e.config.Estimator.MaxChars(e.config.MaxInputTokens); byTokens < budget {
			budget = byTokens
		}
	}
	return budget
}

// ChunkSize returns the chunk length in characters.
func (e *Engine) ChunkSize() int {
	size := int(float64(e.Budget()) * e.config.ChunkRatio)
	if size < 1 {
		size = 1
	}
	return size
}

// Chunk is one ordered slice of the serialized dataset.
type Chunk struct {
	Index int    `json:"chunkIndex"` // 1-based
	Total int    `json:"totalChunks"`
	Data  string `json:"-"`
}

// Plan is the outcome of the size check.
type Plan struct {
	Mode            Mode    `json:"mode"`
	Serialized      string  `json:"-"`
	SerializedChars int     `json:"serializedChars"`
	Budget          int     `json:"budget"`
	ChunkSize       int     `json:"chunkSize"`
	Chunks          []Chunk `json:"chunks"`
	// RequiredChunks is the chunk count before the cap was applied.
	RequiredChunks int    `json:"requiredChunks"`
	Truncated      bool   `json:"truncated"`
	Warning        string `json:"warning,omitempty"`
}

// Plan compresses and serializes events and decides between a single request and
// chunking. Chunks concatenate back to the serialized string unless the chunk cap
// truncated it.
func (e *Engine) Plan(events []busdata.Event) (*Plan, error) {
	serialized, err := Serialize(Compress(events))
	if err != nil {
		return nil, err
	}
	return e.planSerialized(serialized), nil
}

func (e *Engine) planSerialized(serialized string) *Plan {
	p := &Plan{
		Serialized:      serialized,
		SerializedChars: utf8.RuneCountInString(serialized),
		Budget:          e.Budget(),
		ChunkSize:       e.ChunkSize(),
	}

	if p.SerializedChars <= p.Budget {
		p.Mode = ModeSingle
		p.RequiredChunks = 1
		p.Chunks = []Chunk{{Index: 1, Total: 1, Data: serialized}}
		return p
	}

	p.Mode = ModeMulti
	pieces := splitRunes(serialized, p.ChunkSize)
	p.RequiredChunks = len(pieces)
	if len(pieces) > e.config.MaxChunks {
		pieces = pieces[:e.config.MaxChunks]
		p.Truncated = true
		p.Warning = fmt.Sprintf("The dataset needed %d parts but only the first %d (about %d of %d characters) were analysed.",
			p.RequiredChunks, len(pieces), len(pieces)*p.ChunkSize, p.SerializedChars)
	}

	p.Chunks = make([]Chunk, len(pieces))
	for i, piece := range pieces {
		p.Chunks[i] = Chunk{Index: i + 1, Total: len(pieces), Data: piece}
	}
	return p
}

// splitRunes cuts s into consecutive pieces of size runes; the last may be shorter.
func splitRunes(s string, size int) []string {
	pieces := make([]string, 0, utf8.RuneCountInString(s)/size+1)
	start, count := 0, 0
	for i := range s {
		if count == size {
			pieces = append(pieces, s[start:i])
			start, count = i, 0
		}
		count++
	}
	if start < len(s) {
		pieces = append(pieces, s[start:])
	}
	return pieces
}
