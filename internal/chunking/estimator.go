package chunking

import (
	"fmt"
	"math"
	"unicode/utf8"
)

// Estimator approximates the token count of a prompt.
type Estimator interface {
	Name() string
	// Estimate returns the estimated token count of text.
	Estimate(text string) int
	// MaxChars returns the longest text, in characters, estimated at or below tokens.
	MaxChars(tokens int) int
}

// Estimator names.
const (
	EstimatorCharsPerToken = "chars-per-token"
	EstimatorTokensPerChar = "tokens-per-char"
)

// CharsPerToken estimates ceil(chars / Chars). The zero value uses 4 characters per token.
type CharsPerToken struct {
	Chars float64
}

func (e CharsPerToken) ratio() float64 {
	if e.Chars <= 0 {
		return 4
	}
	return e.Chars
}

// Name returns the estimator name.
func (e CharsPerToken) Name() string { return EstimatorCharsPerToken }

// Estimate returns ceil(chars / Chars).
func (e CharsPerToken) Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return int(math.Ceil(float64(n) / e.ratio()))
}

// MaxChars returns tokens × Chars.
func (e CharsPerToken) MaxChars(tokens int) int {
	return int(math.Floor(float64(tokens) * e.ratio()))
}

// TokensPerChar estimates ceil(chars × Ratio). The zero value uses 0.35 tokens per character.
type TokensPerChar struct {
	Ratio float64
}

func (e TokensPerChar) ratio() float64 {
	if e.Ratio <= 0 {
		return 0.35
	}
	return e.Ratio
}

// Name returns the estimator name.
func (e TokensPerChar) Name() string { return EstimatorTokensPerChar }

// Estimate returns ceil(chars × Ratio).
func (e TokensPerChar) Estimate(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	return int(math.Ceil(float64(n) * e.ratio()))
}

// MaxChars returns tokens / Ratio.
func (e TokensPerChar) MaxChars(tokens int) int {
	return int(math.Floor(float64(tokens) / e.ratio()))
}

// Estimators returns both built-in estimators, default first.
func Estimators() []Estimator {
	return []Estimator{CharsPerToken{}, TokensPerChar{}}
}

// EstimatorByName returns the built-in estimator with the given name.
func EstimatorByName(name string) (Estimator, error) {
	switch name {
	case "", EstimatorCharsPerToken:
		return CharsPerToken{}, nil
	case EstimatorTokensPerChar:
		return TokensPerChar{}, nil
	default:
		return nil, fmt.Errorf("unknown token estimator %q", name)
	}
}
