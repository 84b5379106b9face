package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/stingsense/stingsense/internal/analyst"
)

// Job types.
const (
	JobTypeQuery       = "query"
	JobTypeWarmCache   = "warm_cache"
	JobTypeHealthCheck = "health_check"
)

// JobMessage is the payload of a job message.
type JobMessage struct {
	JobType string `json:"job_type"`

	// RequestID correlates a query job with its result.
	RequestID string `json:"request_id,omitempty"`
	Query     string `json:"query,omitempty"`
	Mode      string `json:"mode,omitempty"`

	// Modes overrides the warmed modes for a warm_cache job.
	Modes []string `json:"modes,omitempty"`
}

// ResultMessage is published for every query job and warm_cache run.
type ResultMessage struct {
	JobType     string          `json:"job_type"`
	RequestID   string          `json:"request_id,omitempty"`
	Answer      *analyst.Answer `json:"answer,omitempty"`
	Error       *ResultError    `json:"error,omitempty"`
	Warm        *WarmResult     `json:"warm,omitempty"`
	CompletedAt time.Time       `json:"completed_at"`
}

// ResultError is the caller-safe part of a failed job.
type ResultError struct {
	Kind    analyst.Kind `json:"kind"`
	Message string       `json:"message"`
}

// Publisher sends result messages.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) error
}

// ErrRetry marks a job that failed transiently and should be redelivered.
var ErrRetry = errors.New("job should be retried")

// ProcessorConfig holds configuration for the Processor.
type ProcessorConfig struct {
	Asker Asker
	Warm  *WarmJob

	// Publisher receives results. Results are only logged when nil.
	Publisher Publisher

	// MaxAttempts is the delivery attempt at which a transient failure becomes
	// final. Default: 5
	MaxAttempts int

	Logger zerolog.Logger
}

// Processor runs jobs decoded from messages, independent of the transport.
type Processor struct {
	asker       Asker
	warm        *WarmJob
	publisher   Publisher
	maxAttempts int
	logger      zerolog.Logger
}

// NewProcessor creates a new Processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	warm := cfg.Warm
	if warm == nil {
		warm = NewWarmJob(WarmJobConfig{Asker: cfg.Asker, Logger: cfg.Logger})
	}
	return &Processor{
		asker:       cfg.Asker,
		warm:        warm,
		publisher:   cfg.Publisher,
		maxAttempts: maxAttempts,
		logger:      cfg.Logger,
	}
}

// Handle runs the job in data. attempt is the 1-based delivery attempt. A returned
// error wrapping ErrRetry means the message should be redelivered; any other
// outcome means it is done.
func (p *Processor) Handle(ctx context.Context, data []byte, attempt int) error {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		// Redelivering a malformed message cannot succeed.
		p.logger.Error().Err(err).Msg("failed to parse job message")
		return nil
	}

	switch msg.JobType {
	case JobTypeQuery:
		return p.handleQuery(ctx, msg, attempt)
	case JobTypeWarmCache:
		return p.handleWarmCache(ctx, msg)
	case JobTypeHealthCheck:
		return p.handleHealthCheck(ctx)
	default:
		p.logger.Warn().Str("job_type", msg.JobType).Msg("unknown job type")
		return nil
	}
}

func (p *Processor) handleQuery(ctx context.Context, msg JobMessage, attempt int) error {
	result := ResultMessage{JobType: JobTypeQuery, RequestID: msg.RequestID}

	mode, err := analyst.ParseMode(msg.Mode)
	if err == nil {
		result.Answer, err = p.asker.Ask(ctx, analyst.Query{Text: msg.Query, Mode: mode})
	}

	if err != nil {
		kind := analyst.KindOf(err)
		if kind == analyst.KindUpstream && attempt < p.maxAttempts {
			return fmt.Errorf("%w: attempt %d: %v", ErrRetry, attempt, err)
		}
		result.Error = toResultError(err)
	}

	return p.publish(ctx, result)
}

func (p *Processor) handleWarmCache(ctx context.Context, msg JobMessage) error {
	modes := make([]analyst.Mode, 0, len(msg.Modes))
	for _, m := range msg.Modes {
		mode, err := analyst.ParseMode(m)
		if err != nil {
			p.logger.Warn().Str("mode", m).Msg("skipping invalid warm mode")
			continue
		}
		modes = append(modes, mode)
	}

	warm := p.warm.Run(ctx, modes...)
	if err := p.publish(ctx, ResultMessage{JobType: JobTypeWarmCache, Warm: warm}); err != nil {
		return err
	}

	// Consider it successful if at least half the questions were answered.
	if warm.Failed > warm.Successful {
		return fmt.Errorf("%w: too many warm failures: %d/%d", ErrRetry, warm.Failed, warm.Total)
	}
	return nil
}

// handleHealthCheck answers the first warm question in cluster mode to verify
// the completion service end to end.
func (p *Processor) handleHealthCheck(ctx context.Context) error {
	if !p.asker.Configured() {
		return fmt.Errorf("health check: %w", analyst.ErrNotConfigured)
	}

	questions := p.warm.config.Questions
	_, err := p.asker.Ask(ctx, analyst.Query{Text: questions[0].Question, Mode: analyst.ModeCluster})
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	p.logger.Debug().Msg("health check passed")
	return nil
}

func (p *Processor) publish(ctx context.Context, result ResultMessage) error {
	result.CompletedAt = time.Now().UTC()

	if p.publisher == nil {
		event := p.logger.Info()
		if result.Error != nil {
			event = p.logger.Warn().Str("error_kind", string(result.Error.Kind))
		}
		event.Str("job_type", result.JobType).
			Str("request_id", result.RequestID).
			Msg("job result")
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	attrs := map[string]string{"job_type": result.JobType}
	if result.RequestID != "" {
		attrs["request_id"] = result.RequestID
	}
	if err := p.publisher.Publish(ctx, data, attrs); err != nil {
		return fmt.Errorf("%w: publishing result: %v", ErrRetry, err)
	}
	return nil
}

func toResultError(err error) *ResultError {
	var e *analyst.Error
	if errors.As(err, &e) {
		return &ResultError{Kind: e.Kind, Message: e.Message}
	}
	return &ResultError{Kind: analyst.KindUpstream, Message: analyst.MessageUpstream}
}
