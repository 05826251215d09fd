// SPDX-License-Identifier: MIT

// Package telemetry installs the OpenTelemetry tracer provider used by the
// actor and the HTTP stack.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Exporter names accepted in Config.ExporterType.
const (
	ExporterGRPC = "grpc"
	ExporterHTTP = "http"
)

// flushTimeout caps how long Shutdown waits for the batcher.
const flushTimeout = 5 * time.Second

// ErrUnsupportedExporter is returned for an exporter name other than grpc or http.
var ErrUnsupportedExporter = errors.New("unsupported trace exporter")

// Config holds telemetry configuration.
type Config struct {
	Enabled bool

	ServiceName    string
	ServiceVersion string
	Environment    string

	// ExporterType is ExporterGRPC or ExporterHTTP.
	ExporterType string
	// Endpoint is the OTLP collector host:port.
	Endpoint string
	// SamplingRate is the head sampling ratio in [0, 1].
	SamplingRate float64
}

// Provider owns the SDK tracer provider, if one was installed.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// NewProvider installs the global tracer provider. Disabled telemetry gets a
// noop provider so instrumented code needs no nil checks.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Provider{}, nil
	}

	exp, err := newExporter(ctx, cfg.ExporterType, cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	))
	if err != nil {
		_ = exp.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(cfg.SamplingRate)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return &Provider{tp: tp}, nil
}

func newExporter(ctx context.Context, kind, endpoint string) (sdktrace.SpanExporter, error) {
	switch kind {
	case ExporterGRPC:
		exp, err := otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp grpc exporter: %w", err)
		}
		return exp, nil
	case ExporterHTTP:
		exp, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("otlp http exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedExporter, kind)
	}
}

// Sampler maps a ratio to a parent-based sampler. Out-of-range ratios clamp.
func Sampler(rate float64) sdktrace.Sampler {
	var root sdktrace.Sampler
	switch {
	case rate >= 1:
		root = sdktrace.AlwaysSample()
	case rate <= 0:
		root = sdktrace.NeverSample()
	default:
		root = sdktrace.TraceIDRatioBased(rate)
	}
	return sdktrace.ParentBased(root)
}

// Shutdown flushes buffered spans. It is a no-op for the noop provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	return p.tp.Shutdown(ctx)
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
