package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stingsense/stingsense/internal/completion"
	"github.com/stingsense/stingsense/internal/completion/openai"
	"github.com/stingsense/stingsense/internal/provider/resilience"
)

const okBody = `{
  "model": "gpt-4o-mini-2024-07-18",
  "choices": [{"message": {"role": "assistant", "content": "  Klaus is the main hotspot.  "}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 120, "completion_tokens": 9}
}`

func newClient(t *testing.T, handler http.HandlerFunc) *openai.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return openai.NewClient(openai.ClientConfig{
		APIKey:     "sk-test",
		BaseURL:    server.URL + "/",
		HTTPClient: server.Client(),
		Logger:     zerolog.Nop(),
	})
}

func TestComplete_Success(t *testing.T) {
	var got map[string]any
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	})

	resp, err := client.Complete(context.Background(), completion.Request{Prompt: "Where are the hotspots?"})

	require.NoError(t, err)
	assert.Equal(t, "Klaus is the main hotspot.", resp.Text)
	assert.Equal(t, completion.FinishReasonStop, resp.FinishReason)
	assert.Equal(t, completion.Usage{InputTokens: 120, OutputTokens: 9}, resp.Usage)
	assert.Equal(t, openai.ProviderName, resp.Provider)

	assert.Equal(t, openai.DefaultModel, got["model"])
	assert.EqualValues(t, openai.DefaultMaxOutputTokens, got["max_tokens"])
	messages := got["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "Where are the hotspots?", messages[0].(map[string]any)["content"])
}

func TestComplete_RequestOverrides(t *testing.T) {
	var got map[string]any
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(okBody))
	})

	_, err := client.Complete(context.Background(), completion.Request{Prompt: "p", Model: "other", MaxOutputTokens: 64})

	require.NoError(t, err)
	assert.Equal(t, "other", got["model"])
	assert.EqualValues(t, 64, got["max_tokens"])
}

func TestComplete_NotConfigured(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { calls.Add(1) }))
	defer server.Close()

	client := openai.NewClient(openai.ClientConfig{BaseURL: server.URL, HTTPClient: server.Client()})

	_, err := client.Complete(context.Background(), completion.Request{Prompt: "p"})

	assert.ErrorIs(t, err, completion.ErrNotConfigured)
	assert.False(t, client.Configured())
	assert.Zero(t, calls.Load(), "no request without a key")
}

func TestComplete_EmptyPrompt(t *testing.T) {
	client := newClient(t, func(http.ResponseWriter, *http.Request) {})
	_, err := client.Complete(context.Background(), completion.Request{Prompt: "   "})
	assert.ErrorIs(t, err, completion.ErrInvalidRequest)
}

func TestComplete_ErrorStatuses(t *testing.T) {
	tests := []struct {
		status    int
		want      error
		retryable bool
	}{
		{http.StatusUnauthorized, completion.ErrNotConfigured, false},
		{http.StatusForbidden, completion.ErrNotConfigured, false},
		{http.StatusTooManyRequests, completion.ErrRateLimited, true},
		{http.StatusBadRequest, completion.ErrInvalidRequest, false},
		{http.StatusServiceUnavailable, completion.ErrUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"upstream said no","type":"x"}}`))
			})

			_, err := client.Complete(context.Background(), completion.Request{Prompt: "p"})

			require.ErrorIs(t, err, tt.want)
			var cerr *completion.Error
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, "upstream said no", cerr.Message)
			assert.Equal(t, tt.retryable, cerr.IsRetryable())
		})
	}
}

func TestComplete_FinishReasonLength(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"cut off"},"finish_reason":"length"}]}`))
	})

	_, err := client.Complete(context.Background(), completion.Request{Prompt: "p"})

	assert.ErrorIs(t, err, completion.ErrIncompleteResponse)
}

func TestComplete_NoChoices(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := client.Complete(context.Background(), completion.Request{Prompt: "p"})

	assert.ErrorIs(t, err, completion.ErrIncompleteResponse)
}

func TestComplete_ResilientClientRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	registry := resilience.NewRegistry()
	rc := resilience.NewClient(resilience.ClientConfig{
		Name:            openai.ProviderName,
		MaxRetries:      2,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     10 * time.Millisecond,
		Registry:        registry,
	})
	client := openai.NewClient(openai.ClientConfig{APIKey: "k", BaseURL: server.URL, HTTPClient: rc})

	resp, err := client.Complete(context.Background(), completion.Request{Prompt: "p"})

	require.NoError(t, err)
	assert.Equal(t, "Klaus is the main hotspot.", resp.Text)
	assert.Equal(t, int32(2), attempts.Load())
	assert.NotNil(t, registry.GetHealth(openai.ProviderName).LastSuccessAt)
}

func TestComplete_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client := openai.NewClient(openai.ClientConfig{APIKey: "k", BaseURL: url, HTTPClient: http.DefaultClient})

	_, err := client.Complete(context.Background(), completion.Request{Prompt: "p"})

	assert.ErrorIs(t, err, completion.ErrUnavailable)
}

func TestComplete_Canceled(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(okBody))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Complete(ctx, completion.Request{Prompt: "p"})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("COMPLETION_API_KEY", "sk-env")
	t.Setenv("COMPLETION_MODEL", "m")
	t.Setenv("COMPLETION_MAX_OUTPUT_TOKENS", "300")
	t.Setenv("COMPLETION_TIMEOUT", "5s")

	cfg := openai.ConfigFromEnv()

	assert.Equal(t, "sk-env", cfg.APIKey)
	assert.Equal(t, openai.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, "m", cfg.Model)
	assert.Equal(t, 300, cfg.MaxOutputTokens)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}
