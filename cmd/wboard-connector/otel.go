package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wboard/connector"
	otelexport "github.com/wboard/connector/metrics/export/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const meterName = "github.com/wboard/connector"

var errNoOTelEndpoint = errors.New("metrics.otel.endpoint is required when metrics.otel.enabled is set")

// startOTelMetrics pushes engine metrics to an OTLP/HTTP collector every
// cfg.Interval. The returned function flushes once more and stops the reader.
func startOTelMetrics(ctx context.Context, cfg otelConfig, engine *connector.Engine) (func(context.Context) error, error) {
	if cfg.Endpoint == "" {
		return nil, errNoOTelEndpoint
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("metrics.otel.interval must be > 0, got %s", cfg.Interval)
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("create otel resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.Interval))),
		sdkmetric.WithResource(res),
	)

	engineExporter, err := otelexport.NewExporter(provider.Meter(meterName), engine)
	if err != nil {
		_ = provider.Shutdown(ctx)
		return nil, err
	}

	return func(ctx context.Context) error {
		err := provider.Shutdown(ctx)
		return errors.Join(err, engineExporter.Close())
	}, nil
}
