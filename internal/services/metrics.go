package services

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/bionicotaku/attachment-ingest/internal/services"

type pipelineMetrics struct {
	invocations metric.Int64Counter
	duration    metric.Float64Histogram
}

func newPipelineMetrics(meter metric.Meter) (*pipelineMetrics, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(instrumentationName)
	}
	invocations, err := meter.Int64Counter("ingest.invocations",
		metric.WithDescription("Ingestion invocations by terminal status"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: invocations counter: %w", err)
	}
	duration, err := meter.Float64Histogram("ingest.duration",
		metric.WithDescription("Ingestion invocation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("metrics: duration histogram: %w", err)
	}
	return &pipelineMetrics{invocations: invocations, duration: duration}, nil
}

func (m *pipelineMetrics) record(ctx context.Context, o Outcome) {
	attrs := []attribute.KeyValue{attribute.String("status", string(o.Status))}
	switch o.Status {
	case StatusSkipped:
		attrs = append(attrs, attribute.String("reason", string(o.Reason)))
	case StatusFailed:
		attrs = append(attrs, attribute.String("stage", string(o.Stage)))
	}
	set := metric.WithAttributes(attrs...)
	m.invocations.Add(ctx, 1, set)
	m.duration.Record(ctx, o.Duration.Seconds(), set)
}
