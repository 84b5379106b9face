package analyst

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/stingsense/stingsense/internal/analyst"

// Metrics holds the pipeline instruments.
type Metrics struct {
	queryTotal         metric.Int64Counter
	queryDuration      metric.Float64Histogram
	cacheHit           metric.Int64Counter
	cacheMiss          metric.Int64Counter
	completionTotal    metric.Int64Counter
	completionDuration metric.Float64Histogram
	chunkCount         metric.Int64Histogram
}

// NewMetrics creates the pipeline instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	queryTotal, err := meter.Int64Counter(
		"analyst.query.total",
		metric.WithDescription("Total number of answered or failed questions"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return nil, err
	}

	queryDuration, err := meter.Float64Histogram(
		"analyst.query.duration",
		metric.WithDescription("Duration of question handling in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	cacheHit, err := meter.Int64Counter(
		"analyst.cache.hit",
		metric.WithDescription("Number of answers served from the response cache"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMiss, err := meter.Int64Counter(
		"analyst.cache.miss",
		metric.WithDescription("Number of response cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	completionTotal, err := meter.Int64Counter(
		"completion.request.total",
		metric.WithDescription("Total number of completion requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	completionDuration, err := meter.Float64Histogram(
		"completion.request.duration",
		metric.WithDescription("Duration of completion requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	chunkCount, err := meter.Int64Histogram(
		"analyst.raw.chunks",
		metric.WithDescription("Number of chunks sent per raw-mode question"),
		metric.WithUnit("{chunk}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		queryTotal:         queryTotal,
		queryDuration:      queryDuration,
		cacheHit:           cacheHit,
		cacheMiss:          cacheMiss,
		completionTotal:    completionTotal,
		completionDuration: completionDuration,
		chunkCount:         chunkCount,
	}, nil
}

// RecordQuery records one handled question. outcome is "ok" or an error Kind.
func (m *Metrics) RecordQuery(ctx context.Context, mode Mode, intent, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("query.mode", string(mode)),
		attribute.String("query.intent", intent),
		attribute.String("query.outcome", outcome),
	)
	m.queryTotal.Add(ctx, 1, attrs)
	m.queryDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCache records a cache lookup.
func (m *Metrics) RecordCache(ctx context.Context, mode Mode, hit bool) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("query.mode", string(mode)))
	if hit {
		m.cacheHit.Add(ctx, 1, attrs)
		return
	}
	m.cacheMiss.Add(ctx, 1, attrs)
}

// RecordCompletion records one completion request.
func (m *Metrics) RecordCompletion(provider, stage string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("completion.stage", stage),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Recorded on a fresh context so cancelled requests are still counted.
	ctx := context.TODO()
	m.completionTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.completionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordChunks records how many chunks a raw-mode question used.
func (m *Metrics) RecordChunks(ctx context.Context, chunks int) {
	if m == nil {
		return
	}
	m.chunkCount.Record(ctx, int64(chunks))
}
