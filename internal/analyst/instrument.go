package analyst

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/stingsense/stingsense/internal/chunking"
	"github.com/stingsense/stingsense/internal/completion"
)

// stageCluster labels completion calls made in cluster mode.
const stageCluster = "cluster"

// instrumentedProvider wraps a completion.Provider with a span and metrics per call.
type instrumentedProvider struct {
	next    completion.Provider
	tracer  trace.Tracer
	metrics *Metrics
}

// Instrument wraps p so every call is traced and measured. The chunking stage
// attached to the context, if any, labels the span.
func Instrument(p completion.Provider, metrics *Metrics) completion.Provider {
	return &instrumentedProvider{
		next:    p,
		tracer:  otel.Tracer(instrumentationName),
		metrics: metrics,
	}
}

func (p *instrumentedProvider) Name() string {
	return p.next.Name()
}

func (p *instrumentedProvider) Complete(ctx context.Context, req completion.Request) (*completion.Response, error) {
	stage := stageCluster
	attrs := []attribute.KeyValue{
		attribute.String("provider.name", p.next.Name()),
		attribute.Int("prompt.chars", len(req.Prompt)),
	}
	if s, ok := chunking.StageFromContext(ctx); ok {
		stage = string(s.State)
		if s.Chunk > 0 {
			attrs = append(attrs,
				attribute.Int("chunk.index", s.Chunk),
				attribute.Int("chunk.total", s.Total),
			)
		}
	}
	attrs = append(attrs, attribute.String("completion.stage", stage))

	ctx, span := p.tracer.Start(ctx, "completion "+stage,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	start := time.Now()
	resp, err := p.next.Complete(ctx, req)
	p.metrics.RecordCompletion(p.next.Name(), stage, time.Since(start), err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("usage.input_tokens", resp.Usage.InputTokens),
		attribute.Int("usage.output_tokens", resp.Usage.OutputTokens),
		attribute.String("finish_reason", string(resp.FinishReason)),
	)
	return resp, nil
}
