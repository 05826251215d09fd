// SPDX-License-Identifier: MIT

package statusfeed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ManuGH/reportstream/internal/bus"
	"github.com/ManuGH/reportstream/internal/domain/report/model"
	xglog "github.com/ManuGH/reportstream/internal/log"
	"github.com/ManuGH/reportstream/internal/metrics"
	"github.com/rs/zerolog"
)

// DefaultOutboxSize bounds updates waiting to be published.
const DefaultOutboxSize = 100

// Producer publishes status updates from a bounded outbox. Delivery is at
// most once: failed publishes are logged and dropped.
type Producer struct {
	bus          bus.Bus
	topic        string
	outbox       chan model.StatusUpdate
	drainTimeout time.Duration
	logger       zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewProducer returns a producer for topic with room for outboxSize pending
// updates.
func NewProducer(b bus.Bus, topic string, outboxSize int) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	if outboxSize < 1 {
		outboxSize = DefaultOutboxSize
	}
	return &Producer{
		bus:          b,
		topic:        topic,
		outbox:       make(chan model.StatusUpdate, outboxSize),
		drainTimeout: 5 * time.Second,
		logger:       xglog.WithComponent("statusfeed.producer"),
	}
}

// WithLogger replaces the producer's logger.
func (p *Producer) WithLogger(l zerolog.Logger) *Producer {
	p.logger = l
	return p
}

// Enqueue queues u for publishing without blocking.
func (p *Producer) Enqueue(u model.StatusUpdate) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("%w: producer stopped", ErrPublishFailure)
	}
	select {
	case p.outbox <- u:
		return nil
	default:
		metrics.IncBusDropReason(p.topic, "outbox_full")
		return fmt.Errorf("%w: outbox full", ErrPublishFailure)
	}
}

// Pending returns the number of queued updates.
func (p *Producer) Pending() int {
	return len(p.outbox)
}

// Run publishes queued updates until ctx ends, then flushes what is left
// within the drain timeout.
func (p *Producer) Run(ctx context.Context) error {
	defer func() {
		p.stop()
		p.drain(context.WithoutCancel(ctx))
	}()
	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case u := <-p.outbox:
			p.publish(ctx, u)
		}
	}
	return nil
}

func (p *Producer) stop() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *Producer) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.drainTimeout)
	defer cancel()
	for {
		select {
		case u := <-p.outbox:
			p.publish(ctx, u)
		default:
			return
		}
	}
}

func (p *Producer) publish(ctx context.Context, u model.StatusUpdate) {
	msg, err := Encode(p.topic, u)
	if err == nil {
		err = p.bus.Publish(ctx, p.topic, msg)
	}
	if err != nil {
		p.logger.Error().Err(err).
			Str(xglog.FieldEvent, "statusfeed.publish_failed").
			Str(xglog.FieldTopic, p.topic).
			Str(xglog.FieldReportID, u.ID.String()).
			Str(xglog.FieldNewStatus, u.Status.String()).
			Msg("dropping status update")
		return
	}
	p.logger.Debug().
		Str(xglog.FieldEvent, "statusfeed.published").
		Str(xglog.FieldReportID, u.ID.String()).
		Str(xglog.FieldNewStatus, u.Status.String()).
		Msg("status update published")
}
