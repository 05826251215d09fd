// SPDX-License-Identifier: MIT

package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	xglog "github.com/ManuGH/reportstream/internal/log"
	"github.com/ManuGH/reportstream/internal/metrics"
)

// MemoryBus is an in-memory pub/sub used for unit tests and single-process
// runs. It is not durable and delivers to every subscriber of a topic while
// the publish context remains active.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memSub
	closed bool
	buffer int
}

const dropLogEvery = 100

var dropCount atomic.Uint64

// NewMemoryBus returns a bus whose subscriber channels hold buffer messages.
func NewMemoryBus(buffer int) *MemoryBus {
	if buffer < 1 {
		buffer = 64
	}
	return &MemoryBus{subs: make(map[string][]*memSub), buffer: buffer}
}

func publishDropReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "context_done"
	}
}

// Publish holds the read lock while sending so Close cannot close a channel
// mid-send.
func (b *MemoryBus) Publish(ctx context.Context, topic string, msg Message) error {
	if ctx == nil {
		return fmt.Errorf("publish context is nil")
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	msg.Topic = topic
	for _, s := range b.subs[topic] {
		m := msg
		m.Offset = s.next.Add(1) - 1
		select {
		case s.ch <- m:
			continue
		default:
		}
		select {
		case s.ch <- m:
		case <-ctx.Done():
			reason := publishDropReason(ctx.Err())
			metrics.IncBusDropReason(topic, reason)
			count := dropCount.Add(1)
			if count%dropLogEvery == 1 {
				logger := xglog.WithComponent("bus")
				logger.Warn().
					Str(xglog.FieldTopic, topic).
					Str("reason", reason).
					Uint64("dropped", count).
					Msg("memory bus failed to publish due to context cancellation")
			}
			return fmt.Errorf("publish topic %q: %w", topic, ctx.Err())
		}
	}
	metrics.IncBusMessage(topic, metrics.BusOut, "ok")
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, topic string) (Subscriber, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	s := &memSub{b: b, topic: topic, ch: make(chan Message, b.buffer)}
	b.subs[topic] = append(b.subs[topic], s)
	return s, nil
}

// Subscribers returns the number of live subscriptions on topic.
func (b *MemoryBus) Subscribers(topic string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Close ends every subscription.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for topic, lst := range b.subs {
		for _, s := range lst {
			close(s.ch)
		}
		delete(b.subs, topic)
	}
	return nil
}

type memSub struct {
	b     *MemoryBus
	topic string
	ch    chan Message
	next  atomic.Int64
}

func (s *memSub) C() <-chan Message { return s.ch }

func (s *memSub) Err() error { return nil }

func (s *memSub) Close() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()

	lst, ok := s.b.subs[s.topic]
	if !ok {
		return nil
	}
	out := lst[:0]
	found := false
	for _, c := range lst {
		if c == s {
			found = true
			continue
		}
		out = append(out, c)
	}
	if !found {
		return nil
	}
	if len(out) == 0 {
		delete(s.b.subs, s.topic)
	} else {
		s.b.subs[s.topic] = out
	}
	close(s.ch)
	return nil
}

var _ Bus = (*MemoryBus)(nil)
