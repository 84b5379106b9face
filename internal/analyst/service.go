package analyst

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stingsense/stingsense/internal/busdata"
	"github.com/stingsense/stingsense/internal/cache"
	"github.com/stingsense/stingsense/internal/card"
	"github.com/stingsense/stingsense/internal/chunking"
	"github.com/stingsense/stingsense/internal/completion"
	"github.com/stingsense/stingsense/internal/prompt"
	"github.com/stingsense/stingsense/internal/query"
)

// ServiceConfig holds configuration for the analyst service.
type ServiceConfig struct {
	// Dataset is the telemetry snapshot every question is answered from (required).
	Dataset *busdata.Dataset

	// Router classifies questions and runs the aggregations (required).
	Router *query.Router

	// Formatter renders findings as a context card. Default: card.DefaultConfig().
	Formatter *card.Formatter

	// Provider answers prompts. When nil every question fails with a
	// configuration error.
	Provider completion.Provider

	// Chunking configures raw mode. Its Provider, Templates, Model and Logger
	// are set by the service.
	Chunking chunking.Config

	// Templates override the built-in prompts.
	Templates prompt.Set

	// Model and MaxOutputTokens are passed on every completion request.
	Model           string
	MaxOutputTokens int

	// Cache stores answers by normalized question and mode. Default: no caching.
	Cache cache.Store[*Answer]

	// Metrics records pipeline metrics (optional).
	Metrics *Metrics

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service answers questions about the telemetry. It is safe for concurrent use.
type Service struct {
	dataset   *busdata.Dataset
	router    *query.Router
	formatter *card.Formatter
	provider  completion.Provider
	engine    *chunking.Engine
	templates prompt.Set
	model     string
	maxOutput int
	cache     cache.Store[*Answer]
	metrics   *Metrics
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewService creates a new analyst service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Dataset == nil {
		return nil, ErrNoTelemetry
	}
	if cfg.Router == nil {
		return nil, errors.New("analyst: router is required")
	}

	formatter := cfg.Formatter
	if formatter == nil {
		formatter = card.NewFormatter(card.DefaultConfig())
	}

	store := cfg.Cache
	if store == nil {
		store = cache.Noop[*Answer]{}
	}

	templates := cfg.Templates.WithDefaults()

	var provider completion.Provider
	if cfg.Provider != nil {
		provider = Instrument(cfg.Provider, cfg.Metrics)
	}

	chunkCfg := cfg.Chunking
	chunkCfg.Provider = provider
	chunkCfg.Templates = templates
	chunkCfg.Model = cfg.Model
	chunkCfg.MaxOutputTokens = cfg.MaxOutputTokens
	chunkCfg.Logger = cfg.Logger

	return &Service{
		dataset:   cfg.Dataset,
		router:    cfg.Router,
		formatter: formatter,
		provider:  provider,
		engine:    chunking.NewEngine(chunkCfg),
		templates: templates,
		model:     cfg.Model,
		maxOutput: cfg.MaxOutputTokens,
		cache:     store,
		metrics:   cfg.Metrics,
		tracer:    otel.Tracer(instrumentationName),
		logger:    cfg.Logger,
	}, nil
}

// Dataset returns the telemetry snapshot.
func (s *Service) Dataset() *busdata.Dataset {
	return s.dataset
}

// Engine returns the raw-mode chunking engine.
func (s *Service) Engine() *chunking.Engine {
	return s.engine
}

// CacheStats returns response cache counters.
func (s *Service) CacheStats() cache.Stats {
	return s.cache.Stats()
}

// Configured reports whether a completion provider is available.
func (s *Service) Configured() bool {
	return s.provider != nil
}

// Ask answers q. Failures are returned as *Error with a caller-safe message.
func (s *Service) Ask(ctx context.Context, q Query) (*Answer, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "analyst.Ask")
	defer span.End()

	answer, intent, err := s.ask(ctx, q)

	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	mode := q.Mode
	if answer != nil {
		mode = answer.Mode
	}
	span.SetAttributes(
		attribute.String("query.mode", string(mode)),
		attribute.String("query.intent", string(intent)),
		attribute.String("query.outcome", outcome),
	)
	s.metrics.RecordQuery(ctx, mode, string(intent), outcome, time.Since(start))

	return answer, err
}

func (s *Service) ask(ctx context.Context, q Query) (*Answer, query.Intent, error) {
	text, mode, err := validate(q)
	if err != nil {
		return nil, "", err
	}

	key := CacheKey(text, mode)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.RecordCache(ctx, mode, true)
		s.logger.Debug().Str("cache_key", key).Msg("answer served from cache")
		hit := *cached
		hit.Cached = true
		return &hit, hit.Intent, nil
	}
	s.metrics.RecordCache(ctx, mode, false)

	intent := s.router.Classify(text).Intent
	events := s.dataset.Events()
	if len(events) == 0 {
		return nil, intent, &Error{Kind: KindInsufficientData, Message: MessageNoTelemetry, Err: ErrNoTelemetry}
	}

	s.logger.Info().
		Str("intent", string(intent)).
		Str("mode", string(mode)).
		Int("events", len(events)).
		Msg("answering query")

	answer := &Answer{
		ID:        uuid.NewString(),
		Query:     text,
		Mode:      mode,
		Intent:    intent,
		Model:     s.model,
		CreatedAt: time.Now().UTC(),
	}

	switch mode {
	case ModeRaw:
		err = s.answerRaw(ctx, answer, events)
	default:
		err = s.answerCluster(ctx, answer, events)
	}
	if err != nil {
		return nil, intent, err
	}

	s.cache.Add(key, answer)
	return answer, intent, nil
}

func (s *Service) answerCluster(ctx context.Context, answer *Answer, events []busdata.Event) error {
	findings := s.router.Dispatch(answer.Intent, events, answer.Query)
	contextCard := s.formatter.Format(findings.Title, findings.Findings)

	answer.Card = contextCard.String()
	answer.Findings = contextCard.Lines
	if contextCard.Truncated() {
		answer.Warnings = append(answer.Warnings, contextCard.Notice)
	}

	if s.provider == nil {
		return s.failure(fmt.Errorf("cluster mode: %w", ErrNotConfigured))
	}

	resp, err := s.provider.Complete(ctx, completion.Request{
		Prompt: s.templates.Cluster.Render(prompt.Values{
			prompt.Context:   answer.Card,
			prompt.UserQuery: answer.Query,
		}),
		Model:           s.model,
		MaxOutputTokens: s.maxOutput,
	})
	if err == nil {
		err = completion.CheckFinish(s.provider.Name(), resp)
	}
	if err != nil {
		return s.failure(fmt.Errorf("cluster mode: %w", err))
	}

	answer.Text = resp.Text
	answer.Usage = resp.Usage
	if resp.Model != "" {
		answer.Model = resp.Model
	}
	return nil
}

func (s *Service) answerRaw(ctx context.Context, answer *Answer, events []busdata.Event) error {
	if s.provider == nil {
		return s.failure(fmt.Errorf("raw mode: %w", ErrNotConfigured))
	}

	res, err := s.engine.Execute(ctx, events, answer.Query)
	if res != nil {
		s.metrics.RecordChunks(ctx, res.ChunkCount)
	}
	if err != nil {
		return s.failure(fmt.Errorf("raw mode: %w", err))
	}

	answer.Text = res.Answer
	answer.Usage = res.Usage
	answer.Chunks = res.ChunkCount
	answer.Warnings = append(answer.Warnings, res.Warnings...)
	return nil
}

// failure logs err and converts it to a caller-safe *Error.
func (s *Service) failure(err error) error {
	if errors.Is(err, ErrNotConfigured) ||
		errors.Is(err, chunking.ErrNoProvider) ||
		errors.Is(err, completion.ErrNotConfigured) {
		s.logger.Error().Err(err).Msg("completion service not configured")
		return &Error{Kind: KindConfiguration, Message: MessageUnavailable, Err: err}
	}

	s.logger.Error().Err(err).Msg("completion request failed")
	return &Error{Kind: KindUpstream, Message: MessageUpstream, Err: err}
}

// Insights runs the aggregation for intent without calling the completion service.
func (s *Service) Insights(ctx context.Context, intent query.Intent) (query.StructuredFindings, card.ContextCard) {
	_, span := s.tracer.Start(ctx, "analyst.Insights",
		trace.WithAttributes(attribute.String("query.intent", string(intent))),
	)
	defer span.End()

	findings := s.router.Dispatch(intent, s.dataset.Events(), "")
	return findings, s.formatter.Format(findings.Title, findings.Findings)
}

func validate(q Query) (string, Mode, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return "", "", &Error{Kind: KindValidation, Message: "query must be a non-empty string", Err: ErrEmptyQuery}
	}
	if len([]rune(text)) > MaxQueryLength {
		return "", "", &Error{
			Kind:    KindValidation,
			Message: fmt.Sprintf("query must be at most %d characters", MaxQueryLength),
			Err:     ErrQueryTooLong,
		}
	}

	mode, err := ParseMode(string(q.Mode))
	if err != nil {
		return "", "", err
	}
	return text, mode, nil
}

// CacheKey returns the cache key for a question: the mode plus the question
// lower-cased with whitespace collapsed.
func CacheKey(text string, mode Mode) string {
	return string(mode) + "|" + strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
