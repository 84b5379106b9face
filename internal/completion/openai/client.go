// Package openai provides a completion client for OpenAI-compatible chat completion APIs.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/stingsense/stingsense/internal/completion"
	"github.com/stingsense/stingsense/internal/provider/resilience"
)

const (
	// ProviderName identifies this completion provider.
	ProviderName = "openai"

	// DefaultBaseURL is the OpenAI API base URL.
	DefaultBaseURL = "https://api.openai.com"

	// DefaultModel is used when neither the config nor the request names a model.
	DefaultModel = "gpt-4o-mini"

	// DefaultMaxOutputTokens caps answers when the request does not.
	DefaultMaxOutputTokens = 512

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 60 * time.Second

	// maxErrorBody bounds how much of an error response is read.
	maxErrorBody = 4096
)

// HTTPDoer is an interface for executing HTTP requests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ClientConfig holds configuration for the client.
type ClientConfig struct {
	// APIKey is the bearer token. An empty key makes every call fail with
	// completion.ErrNotConfigured.
	APIKey string

	// BaseURL is the API base URL (optional, defaults to OpenAI).
	BaseURL string

	// Model is the default model (optional).
	Model string

	// MaxOutputTokens is the default output cap (optional).
	MaxOutputTokens int

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a resilient client with defaults.
	HTTPClient HTTPDoer

	// Timeout is the request timeout (optional, defaults to 60s).
	Timeout time.Duration

	// Registry is the provider registry for health tracking (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// ConfigFromEnv creates a ClientConfig from environment variables.
func ConfigFromEnv() ClientConfig {
	maxTokens, _ := strconv.Atoi(getEnvOrDefault("COMPLETION_MAX_OUTPUT_TOKENS", strconv.Itoa(DefaultMaxOutputTokens)))
	timeout, _ := time.ParseDuration(getEnvOrDefault("COMPLETION_TIMEOUT", DefaultTimeout.String()))

	return ClientConfig{
		APIKey:          os.Getenv("COMPLETION_API_KEY"),
		BaseURL:         getEnvOrDefault("COMPLETION_BASE_URL", DefaultBaseURL),
		Model:           getEnvOrDefault("COMPLETION_MODEL", DefaultModel),
		MaxOutputTokens: maxTokens,
		Timeout:         timeout,
	}
}

// Client is an OpenAI-compatible chat completion client.
type Client struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      HTTPDoer
	logger          zerolog.Logger
}

// NewClient creates a new client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxOutputTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		clientCfg := resilience.DefaultClientConfig(ProviderName)
		clientCfg.Timeout = timeout
		clientCfg.Registry = cfg.Registry
		httpClient = resilience.NewClient(clientCfg)
	}

	return &Client{
		apiKey:          cfg.APIKey,
		baseURL:         baseURL,
		model:           model,
		maxOutputTokens: maxTokens,
		httpClient:      httpClient,
		logger:          cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Configured reports whether the client has a credential.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

// Complete sends the prompt as a single user message.
func (c *Client) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	if !c.Configured() {
		return nil, &completion.Error{
			Provider: ProviderName,
			Code:     "NO_API_KEY",
			Message:  "completion API key is not set",
			Err:      completion.ErrNotConfigured,
		}
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, &completion.Error{
			Provider: ProviderName,
			Code:     "EMPTY_PROMPT",
			Message:  "prompt is empty",
			Err:      completion.ErrInvalidRequest,
		}
	}

	model := req.Model
	if model == "" {
		model = c.model
	}
	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = c.maxOutputTokens
	}

	body, err := json.Marshal(chatRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens: maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug().
		Str("model", model).
		Int("prompt_chars", len(req.Prompt)).
		Int("max_tokens", maxTokens).
		Msg("requesting completion")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		code := "REQUEST_FAILED"
		if errors.Is(err, resilience.ErrCircuitOpen) {
			code = "CIRCUIT_OPEN"
		}
		return nil, &completion.Error{
			Provider: ProviderName,
			Code:     code,
			Message:  "failed to reach completion service",
			Err:      fmt.Errorf("%w: %w", completion.ErrUnavailable, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, c.handleErrorResponse(resp.StatusCode, errBody)
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		return nil, &completion.Error{
			Provider: ProviderName,
			Code:     "DECODE",
			Message:  "decoding completion response",
			Err:      fmt.Errorf("%w: %w", completion.ErrUnavailable, err),
		}
	}
	if len(chat.Choices) == 0 {
		return nil, &completion.Error{
			Provider: ProviderName,
			Code:     "NO_CHOICES",
			Message:  "completion response has no choices",
			Err:      completion.ErrIncompleteResponse,
		}
	}

	result := &completion.Response{
		Text:         strings.TrimSpace(chat.Choices[0].Message.Content),
		Model:        chat.Model,
		FinishReason: completion.FinishReason(chat.Choices[0].FinishReason),
		Provider:     ProviderName,
		Usage: completion.Usage{
			InputTokens:  chat.Usage.PromptTokens,
			OutputTokens: chat.Usage.CompletionTokens,
		},
	}
	if err := completion.CheckFinish(ProviderName, result); err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("model", result.Model).
		Int("input_tokens", result.Usage.InputTokens).
		Int("output_tokens", result.Usage.OutputTokens).
		Msg("received completion")

	return result, nil
}

// handleErrorResponse maps error responses to completion errors.
func (c *Client) handleErrorResponse(statusCode int, body []byte) error {
	var apiErr errorResponse
	message := fmt.Sprintf("completion service returned status %d", statusCode)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		message = apiErr.Error.Message
	}

	e := &completion.Error{
		Provider: ProviderName,
		Code:     fmt.Sprintf("HTTP_%d", statusCode),
		Message:  message,
	}
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Err = completion.ErrNotConfigured
	case statusCode == http.StatusTooManyRequests:
		e.Err = completion.ErrRateLimited
	case statusCode >= 500:
		e.Err = completion.ErrUnavailable
	default:
		e.Err = completion.ErrInvalidRequest
	}
	return e
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
