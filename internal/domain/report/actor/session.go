// SPDX-License-Identifier: MIT

package actor

import (
	"sync"
	"time"

	"github.com/ManuGH/reportstream/internal/metrics"
	"github.com/google/uuid"
)

// Session is one live push registration. The transport reads Deliveries
// until it calls Close; the actor writes to it and never closes the channel.
type Session struct {
	UserID uuid.UUID
	ID     uuid.UUID

	ch        chan Delivery
	done      chan struct{}
	closeOnce sync.Once
}

// NewSession returns an open session whose channel holds up to buffer deliveries.
func NewSession(user uuid.UUID, buffer int) *Session {
	if buffer < 1 {
		buffer = 1
	}
	return &Session{
		UserID: user,
		ID:     uuid.New(),
		ch:     make(chan Delivery, buffer),
		done:   make(chan struct{}),
	}
}

// Deliveries is the receive side for the transport.
func (s *Session) Deliveries() <-chan Delivery { return s.ch }

// Done is closed once the session's receiver has gone away.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close marks the receiver gone. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// deliver attempts one send bounded by timeout. It returns the metrics
// outcome label and never blocks past the timeout.
func (s *Session) deliver(d Delivery, timeout time.Duration) string {
	if s.Closed() {
		return metrics.DeliveryDroppedClosed
	}
	select {
	case s.ch <- d:
		return metrics.DeliveryDelivered
	default:
	}
	if timeout <= 0 {
		return metrics.DeliveryDroppedFull
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case s.ch <- d:
		return metrics.DeliveryDelivered
	case <-s.done:
		return metrics.DeliveryDroppedClosed
	case <-t.C:
		return metrics.DeliveryDroppedFull
	}
}
