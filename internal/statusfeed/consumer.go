// SPDX-License-Identifier: MIT

package statusfeed

import (
	"context"
	"errors"
	"fmt"

	"github.com/ManuGH/reportstream/internal/bus"
	"github.com/ManuGH/reportstream/internal/domain/report/actor"
	"github.com/ManuGH/reportstream/internal/domain/report/model"
	xglog "github.com/ManuGH/reportstream/internal/log"
	"github.com/ManuGH/reportstream/internal/metrics"
	"github.com/ManuGH/reportstream/internal/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Submitter accepts status updates for the actor.
type Submitter interface {
	RequestStatusUpdate(ctx context.Context, u model.StatusUpdate, source string) error
}

// Consumer reads status updates from one topic and hands them to the actor.
type Consumer struct {
	bus    bus.Bus
	topic  string
	sink   Submitter
	logger zerolog.Logger
	tracer trace.Tracer
}

// NewConsumer returns a consumer for topic. An empty topic means DefaultTopic.
func NewConsumer(b bus.Bus, topic string, sink Submitter) *Consumer {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Consumer{
		bus:    b,
		topic:  topic,
		sink:   sink,
		logger: xglog.WithComponent("statusfeed.consumer"),
		tracer: telemetry.Tracer("reportstream/statusfeed"),
	}
}

// WithLogger replaces the consumer's logger.
func (c *Consumer) WithLogger(l zerolog.Logger) *Consumer {
	c.logger = l
	return c
}

// WithTracer replaces the tracer used for per-message spans.
func (c *Consumer) WithTracer(t trace.Tracer) *Consumer {
	c.tracer = t
	return c
}

// Run consumes until ctx ends or the subscription fails. A full actor inbox
// suspends consumption rather than dropping updates. Malformed messages and
// submissions refused by a stopping actor are logged and skipped. It returns
// an error matching bus.ErrBrokersUnreachable when every broker is gone.
func (c *Consumer) Run(ctx context.Context) error {
	sub, err := c.bus.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe %q: %w", c.topic, err)
	}
	defer func() { _ = sub.Close() }()

	c.logger.Info().
		Str(xglog.FieldEvent, "statusfeed.consumer_started").
		Str(xglog.FieldTopic, c.topic).
		Msg("status feed consumer started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-sub.C():
			if !ok {
				if err := sub.Err(); err != nil {
					c.logger.Error().Err(err).
						Str(xglog.FieldEvent, "statusfeed.consumer_halted").
						Str(xglog.FieldTopic, c.topic).
						Msg("status feed consumer halted")
					return err
				}
				return nil
			}
			c.handle(ctx, m)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, m bus.Message) {
	ctx, span := c.tracer.Start(ctx, "statusfeed.consume",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(telemetry.BusAttributes(c.topic, m.Partition, m.Offset)...))
	defer span.End()

	u, err := Decode(m)
	if err != nil {
		span.SetAttributes(telemetry.ErrorAttributes("decode")...)
		span.SetStatus(codes.Error, err.Error())
		metrics.IncBusMessage(c.topic, metrics.BusIn, "decode_error")
		c.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "statusfeed.decode_failed").
			Str(xglog.FieldTopic, c.topic).
			Int(xglog.FieldPartition, m.Partition).
			Int64(xglog.FieldOffset, m.Offset).
			Msg("skipping malformed status message")
		return
	}

	span.SetAttributes(telemetry.ReportAttributes(u.ID.String(), "", u.Status.String())...)

	if err := c.sink.RequestStatusUpdate(ctx, u, actor.SourceBus); err != nil {
		span.SetAttributes(telemetry.ErrorAttributes("submit")...)
		span.SetStatus(codes.Error, err.Error())
		outcome := "submit_error"
		if errors.Is(err, context.Canceled) {
			outcome = "canceled"
		}
		metrics.IncBusMessage(c.topic, metrics.BusIn, outcome)
		c.logger.Error().Err(err).
			Str(xglog.FieldEvent, "statusfeed.submit_failed").
			Str(xglog.FieldReportID, u.ID.String()).
			Str(xglog.FieldNewStatus, u.Status.String()).
			Msg("actor did not accept status update")
		return
	}
	metrics.IncBusMessage(c.topic, metrics.BusIn, "ok")
}
