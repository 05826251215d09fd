// SPDX-License-Identifier: MIT

// Package kafka implements bus.Bus on Apache Kafka via segmentio/kafka-go.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/ManuGH/reportstream/internal/bus"
	xglog "github.com/ManuGH/reportstream/internal/log"
	"github.com/ManuGH/reportstream/internal/metrics"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// Config addresses the cluster.
type Config struct {
	Brokers        []string
	GroupID        string
	ClientID       string
	SessionTimeout time.Duration
	// MessageTimeout bounds one produce call.
	MessageTimeout time.Duration
	// DialTimeout bounds each broker probe.
	DialTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = 6 * time.Second
	}
	if c.MessageTimeout <= 0 {
		c.MessageTimeout = 5 * time.Second
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = 3 * time.Second
	}
	if c.ClientID == "" {
		c.ClientID = "reportstream"
	}
	return c
}

// Bus publishes with one shared writer and consumes with one reader per
// subscription.
type Bus struct {
	cfg    Config
	logger zerolog.Logger
	writer *kafkago.Writer
	dialer *kafkago.Dialer

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

// New builds a bus. No connection is made until the first Publish or Subscribe.
func New(cfg Config, logger zerolog.Logger) (*Bus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: at least one broker is required")
	}
	cfg = cfg.withDefaults()

	b := &Bus{
		cfg:    cfg,
		logger: logger,
		dialer: &kafkago.Dialer{ClientID: cfg.ClientID, Timeout: cfg.DialTimeout},
		subs:   make(map[*subscriber]struct{}),
	}
	b.writer = &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Brokers...),
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		WriteTimeout:           cfg.MessageTimeout,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		Transport:              &kafkago.Transport{ClientID: cfg.ClientID, DialTimeout: cfg.DialTimeout},
		ErrorLogger:            errorLogger(logger),
	}
	return b, nil
}

func errorLogger(l zerolog.Logger) kafkago.LoggerFunc {
	return func(msg string, args ...interface{}) {
		l.Warn().Str(xglog.FieldEvent, "kafka.client_error").Msgf(msg, args...)
	}
}

// Publish writes one message. The key picks the partition, so all updates
// for one report stay ordered.
func (b *Bus) Publish(ctx context.Context, topic string, msg bus.Message) error {
	if b.isClosed() {
		return bus.ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, b.cfg.MessageTimeout)
	defer cancel()

	err := b.writer.WriteMessages(ctx, kafkago.Message{
		Topic: topic,
		Key:   msg.Key,
		Value: msg.Value,
	})
	if err != nil {
		metrics.IncBusMessage(topic, metrics.BusOut, "error")
		if IsUnreachable(err) {
			return fmt.Errorf("kafka publish %q: %w: %w", topic, bus.ErrBrokersUnreachable, err)
		}
		return fmt.Errorf("kafka publish %q: %w", topic, err)
	}
	metrics.IncBusMessage(topic, metrics.BusOut, "ok")
	return nil
}

// Ping succeeds when at least one broker accepts a connection.
func (b *Bus) Ping(ctx context.Context) error {
	var lastErr error
	for _, addr := range b.cfg.Brokers {
		conn, err := b.dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %w", bus.ErrBrokersUnreachable, lastErr)
}

// Subscribe joins the consumer group for topic. It fails with
// bus.ErrBrokersUnreachable when no broker answers.
func (b *Bus) Subscribe(ctx context.Context, topic string) (bus.Subscriber, error) {
	if b.isClosed() {
		return nil, bus.ErrClosed
	}
	if err := b.Ping(ctx); err != nil {
		return nil, err
	}

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        b.cfg.Brokers,
		GroupID:        b.cfg.GroupID,
		Topic:          topic,
		Dialer:         b.dialer,
		SessionTimeout: b.cfg.SessionTimeout,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		StartOffset:    kafkago.LastOffset,
		CommitInterval: time.Second,
		ErrorLogger:    errorLogger(b.logger),
	})

	runCtx, cancel := context.WithCancel(context.Background())
	s := &subscriber{
		b:      b,
		topic:  topic,
		reader: reader,
		ch:     make(chan bus.Message, 64),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go s.run(runCtx)
	return s, nil
}

// Close stops every subscription and flushes the writer.
func (b *Bus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := make([]*subscriber, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	var errs []error
	for _, s := range subs {
		errs = append(errs, s.Close())
	}
	errs = append(errs, b.writer.Close())
	return errors.Join(errs...)
}

func (b *Bus) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

type subscriber struct {
	b      *Bus
	topic  string
	reader *kafkago.Reader
	ch     chan bus.Message
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	err       error
	closeOnce sync.Once
}

func (s *subscriber) C() <-chan bus.Message { return s.ch }

func (s *subscriber) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *subscriber) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.done
		err = s.reader.Close()

		s.b.mu.Lock()
		delete(s.b.subs, s)
		s.b.mu.Unlock()
	})
	return err
}

func (s *subscriber) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.ch)

	logger := s.b.logger.With().Str(xglog.FieldTopic, s.topic).Logger()
	logger.Info().
		Str(xglog.FieldEvent, "kafka.subscribed").
		Str("group_id", s.b.cfg.GroupID).
		Strs("brokers", s.b.cfg.Brokers).
		Msg("listening for messages")

	for {
		m, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			if IsUnreachable(err) {
				if perr := s.b.Ping(ctx); perr != nil {
					s.setErr(perr)
					logger.Error().Err(perr).
						Str(xglog.FieldEvent, "kafka.brokers_unreachable").
						Msg("all brokers are down; consumer halted")
					return
				}
			}
			metrics.IncBusMessage(s.topic, metrics.BusIn, "error")
			logger.Warn().Err(err).Str(xglog.FieldEvent, "kafka.read_failed").Msg("kafka read error")
			continue
		}

		msg := bus.Message{
			Topic:     m.Topic,
			Key:       m.Key,
			Value:     m.Value,
			Partition: m.Partition,
			Offset:    m.Offset,
		}
		select {
		case s.ch <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (s *subscriber) setErr(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// IsUnreachable reports whether err means a broker could not be reached at
// all, as opposed to a protocol or payload failure.
func IsUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, bus.ErrBrokersUnreachable) ||
		errors.Is(err, kafkago.BrokerNotAvailable) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

var _ bus.Bus = (*Bus)(nil)
