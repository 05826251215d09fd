// SPDX-License-Identifier: MIT

// Package bus is the message transport abstraction between this service and
// the workers that drive report status. The in-memory implementation serves
// tests and single-process runs; internal/bus/kafka talks to a real broker.
package bus

import (
	"context"
	"errors"
)

var (
	// ErrBrokersUnreachable means no broker could be reached. Subscribers
	// halt permanently on it; there is no reconnect loop.
	ErrBrokersUnreachable = errors.New("bus: all brokers unreachable")
	// ErrClosed is returned by operations on a closed bus.
	ErrClosed = errors.New("bus: closed")
)

// Message is one keyed payload. Partition and Offset are set by transports
// that have them.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Partition int
	Offset    int64
}

type Subscriber interface {
	// C returns a read-only message channel. It is closed when the
	// subscription ends.
	C() <-chan Message
	// Err reports why C was closed; nil after a plain Close.
	Err() error
	// Close unsubscribes.
	Close() error
}

// Bus is the event transport abstraction.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
	Close() error
}
