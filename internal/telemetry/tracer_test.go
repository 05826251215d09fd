// SPDX-License-Identifier: MIT

package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

func TestNewProvider_Disabled(t *testing.T) {
	provider, err := NewProvider(context.Background(), Config{
		Enabled:      false,
		ServiceName:  "test-service",
		ExporterType: ExporterGRPC,
	})
	require.NoError(t, err)
	assert.Nil(t, provider.tp, "disabled telemetry installs a noop provider")

	_, span := otel.Tracer("test").Start(context.Background(), "noop-check")
	assert.False(t, span.IsRecording())
	span.End()
}

func TestNewProvider_InvalidExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		Enabled:      true,
		ServiceName:  "test-service",
		ExporterType: "invalid",
	})
	require.ErrorIs(t, err, ErrUnsupportedExporter)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 1.0, want: "AlwaysOnSampler"},
		{rate: 2.0, want: "AlwaysOnSampler"},
		{rate: 0.0, want: "AlwaysOffSampler"},
		{rate: 0.5, want: "TraceIDRatioBased"},
	}
	for _, tt := range tests {
		assert.Contains(t, Sampler(tt.rate).Description(), tt.want, "rate %v", tt.rate)
	}
}

func TestProvider_ShutdownNoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, (&Provider{}).Shutdown(ctx))
}

func TestProvider_ConcurrentShutdown(t *testing.T) {
	provider := &Provider{tp: nil}
	done := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			_ = provider.Shutdown(ctx)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 5; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for concurrent shutdown")
		}
	}
}

func TestTracer(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	ctx, span := Tracer("test-tracer").Start(context.Background(), "test-span")
	require.NotNil(t, span)
	span.End()
	assert.NotNil(t, trace.SpanFromContext(ctx))
}
