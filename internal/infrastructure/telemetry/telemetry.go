// Package telemetry configures the OpenTelemetry meter provider used by the pipeline metrics.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/bionicotaku/attachment-ingest/internal/infrastructure/configloader"
)

// MeterName is the instrumentation scope shared by the worker's instruments.
const MeterName = "github.com/bionicotaku/attachment-ingest"

// NewMeterProvider builds the meter provider selected by cfg and installs it globally.
// With the "none" exporter a no-op provider is returned.
func NewMeterProvider(cfg configloader.MetricsConfig, svc configloader.ServiceConfig, logger log.Logger) (metric.MeterProvider, func(), error) {
	if cfg.Exporter != configloader.MetricsExporterStdout {
		return noop.NewMeterProvider(), func() {}, nil
	}

	exporter, err := stdoutmetric.New()
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: stdout exporter: %w", err)
	}
	interval := cfg.IntervalDuration
	if interval <= 0 {
		interval = time.Minute
	}

	res := resource.NewSchemaless(
		semconv.ServiceName(svc.Name),
		semconv.ServiceVersion(svc.Version),
		semconv.DeploymentEnvironment(svc.Environment),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp)

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(ctx); err != nil {
			log.NewHelper(logger).Warnf("shutdown meter provider: %v", err)
		}
	}
	return mp, cleanup, nil
}

// ProvideMeter returns the meter used by the pipeline.
func ProvideMeter(mp metric.MeterProvider) metric.Meter {
	if mp == nil {
		return noop.NewMeterProvider().Meter(MeterName)
	}
	return mp.Meter(MeterName)
}
