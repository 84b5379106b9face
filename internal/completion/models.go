// Package completion defines the contract with the hosted text-completion service.
package completion

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for completion calls.
var (
	// ErrNotConfigured indicates a missing or rejected credential or endpoint.
	ErrNotConfigured = errors.New("completion service not configured")
	// ErrUnavailable indicates the service is down, unreachable or the circuit is open.
	ErrUnavailable = errors.New("completion service unavailable")
	// ErrRateLimited indicates the service quota has been exceeded.
	ErrRateLimited = errors.New("completion rate limit exceeded")
	// ErrInvalidRequest indicates the service rejected the request itself.
	ErrInvalidRequest = errors.New("invalid completion request")
	// ErrIncompleteResponse indicates the service stopped for any reason other than
	// finishing its answer.
	ErrIncompleteResponse = errors.New("incomplete completion response")
)

// Provider generates text from a prompt.
type Provider interface {
	// Complete runs one completion. Any non-success outcome is an error; callers
	// never receive a partial response.
	Complete(ctx context.Context, req Request) (*Response, error)
	// Name returns the provider identifier for logging and metrics.
	Name() string
}

// Request is a single completion request.
type Request struct {
	Prompt string
	// Model overrides the provider's default model when set.
	Model string
	// MaxOutputTokens caps the response length; zero uses the provider default.
	MaxOutputTokens int
}

// FinishReason is why the service stopped generating.
type FinishReason string

const (
	FinishReasonStop          FinishReason = "stop"
	FinishReasonLength        FinishReason = "length"
	FinishReasonContentFilter FinishReason = "content_filter"
)

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Add returns the sum of two usages.
func (u Usage) Add(o Usage) Usage {
	return Usage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
	}
}

// Response is a successful completion.
type Response struct {
	Text         string
	Model        string
	Usage        Usage
	FinishReason FinishReason
	Provider     string
}

// Error provides detailed error information from the completion provider.
type Error struct {
	Provider string // Provider that generated the error
	Code     string // Error code, e.g. HTTP_429
	Message  string // Human-readable error message
	Err      error  // Underlying error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is transient and the request can be retried.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrUnavailable) || errors.Is(e.Err, ErrRateLimited)
}

// CheckFinish returns ErrIncompleteResponse unless the response finished normally
// with non-empty text.
func CheckFinish(provider string, resp *Response) error {
	if resp.FinishReason != FinishReasonStop {
		return &Error{
			Provider: provider,
			Code:     "FINISH_" + string(resp.FinishReason),
			Message:  fmt.Sprintf("completion stopped with finish reason %q", resp.FinishReason),
			Err:      ErrIncompleteResponse,
		}
	}
	if resp.Text == "" {
		return &Error{
			Provider: provider,
			Code:     "EMPTY",
			Message:  "completion returned no text",
			Err:      ErrIncompleteResponse,
		}
	}
	return nil
}
