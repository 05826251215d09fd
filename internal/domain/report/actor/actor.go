// SPDX-License-Identifier: MIT

// Package actor implements the single goroutine that owns the status cache
// and the connection registry. Every mutation of either, every lifecycle
// transition and every mutating store call happens inside Run, in the order
// events arrive on one bounded inbox.
package actor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/reportstream/internal/domain/report/lifecycle"
	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/domain/report/ports"
	xglog "github.com/ManuGH/reportstream/internal/log"
	"github.com/ManuGH/reportstream/internal/metrics"
	"github.com/ManuGH/reportstream/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Config sizes the actor.
type Config struct {
	QueueSize     int
	CacheCapacity int
	SessionBuffer int
	// SubmitTimeout bounds how long a producer waits for room in the inbox.
	SubmitTimeout time.Duration
	// DeliveryTimeout bounds one send to a session channel.
	DeliveryTimeout time.Duration
	// StoreTimeout bounds each store call made while handling an event.
	StoreTimeout time.Duration
	// DrainTimeout bounds the wait for session watchers on shutdown.
	DrainTimeout time.Duration
}

// DefaultConfig returns the reference sizing.
func DefaultConfig() Config {
	return Config{
		QueueSize:       100,
		CacheCapacity:   200,
		SessionBuffer:   100,
		SubmitTimeout:   5 * time.Second,
		DeliveryTimeout: 100 * time.Millisecond,
		StoreTimeout:    5 * time.Second,
		DrainTimeout:    5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = d.CacheCapacity
	}
	if c.SessionBuffer <= 0 {
		c.SessionBuffer = d.SessionBuffer
	}
	if c.SubmitTimeout <= 0 {
		c.SubmitTimeout = d.SubmitTimeout
	}
	if c.DeliveryTimeout <= 0 {
		c.DeliveryTimeout = d.DeliveryTimeout
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	if c.DrainTimeout <= 0 {
		c.DrainTimeout = d.DrainTimeout
	}
	return c
}

// Option customises an Actor.
type Option func(*Actor)

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Actor) { a.logger = l }
}

// WithTracer replaces the tracer used for per-event spans.
func WithTracer(t trace.Tracer) Option {
	return func(a *Actor) { a.tracer = t }
}

// Actor is the event loop. Create it with New and start it with Run.
type Actor struct {
	cfg    Config
	store  ports.Store
	logger zerolog.Logger
	tracer trace.Tracer

	events   chan Event
	stopping chan struct{}
	stopped  chan struct{}
	started  atomic.Bool
	stopOnce sync.Once

	watchers workerGroup

	// owned by the Run goroutine
	cache    *StatusCache
	registry *Registry
}

// New builds an actor over store. Zero Config fields take DefaultConfig values.
func New(store ports.Store, cfg Config, opts ...Option) *Actor {
	cfg = cfg.withDefaults()
	a := &Actor{
		cfg:      cfg,
		store:    store,
		logger:   xglog.WithComponent("actor"),
		tracer:   telemetry.Tracer("reportstream/actor"),
		events:   make(chan Event, cfg.QueueSize),
		stopping: make(chan struct{}),
		stopped:  make(chan struct{}),
		cache:    NewStatusCache(cfg.CacheCapacity),
		registry: NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the effective configuration.
func (a *Actor) Config() Config { return a.cfg }

// Running reports whether Run is processing events.
func (a *Actor) Running() bool {
	if !a.started.Load() {
		return false
	}
	select {
	case <-a.stopping:
		return false
	default:
		return true
	}
}

// Stopped is closed after Run has drained and returned.
func (a *Actor) Stopped() <-chan struct{} { return a.stopped }

// Run processes events until ctx is canceled, then refuses new submissions,
// handles whatever is already buffered and returns. It may be called once.
func (a *Actor) Run(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return errors.New("actor: already running")
	}
	defer close(a.stopped)

	a.logger.Info().
		Str(xglog.FieldEvent, "actor.started").
		Int("queue_size", a.cfg.QueueSize).
		Int("cache_capacity", a.cfg.CacheCapacity).
		Msg("report actor started")

	// handlers keep ctx values but not its cancellation; each store call
	// carries its own StoreTimeout
	work := context.WithoutCancel(ctx)
	for {
		select {
		case ev := <-a.events:
			a.handle(work, ev)
		case <-ctx.Done():
			a.shutdown(work)
			return nil
		}
	}
}

func (a *Actor) shutdown(ctx context.Context) {
	a.stopOnce.Do(func() { close(a.stopping) })

	drained := 0
drain:
	for {
		select {
		case ev := <-a.events:
			a.handle(ctx, ev)
			drained++
		default:
			break drain
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.DrainTimeout)
	defer cancel()
	if err := a.watchers.CloseAndWait(waitCtx); err != nil {
		a.logger.Warn().Err(err).Str(xglog.FieldEvent, "actor.watchers_drain_timeout").Msg("session watchers did not exit")
	}

	// a Submit racing the stopping signal can still land after the drain
	dropped := a.dropLate()

	a.logger.Info().
		Str(xglog.FieldEvent, "actor.stopped").
		Int("drained", drained).
		Int("dropped", dropped).
		Int("sessions", a.registry.Len()).
		Int("cached", a.cache.Len()).
		Msg("report actor stopped")
}

func (a *Actor) dropLate() int {
	n := 0
	for {
		select {
		case ev := <-a.events:
			n++
			metrics.IncActorEvent(ev.Kind(), ErrSubmitFailed)
			a.logger.Warn().
				Str(xglog.FieldEvent, "actor.event_dropped").
				Str(xglog.FieldKind, ev.Kind()).
				Msg("event arrived after shutdown drain; dropped")
			if u, ok := ev.(StatusUpdateRequested); ok {
				reply(u.Reply, fmt.Errorf("%w: actor stopped before handling update", ErrSubmitFailed))
			}
		default:
			return n
		}
	}
}

// Submit hands ev to the actor, waiting for room in the inbox for at most
// SubmitTimeout (or ctx's deadline, if sooner). It fails with ErrSubmitFailed
// once the actor is stopping.
func (a *Actor) Submit(ctx context.Context, ev Event) error {
	select {
	case <-a.stopping:
		return fmt.Errorf("%w: %s: actor stopping", ErrSubmitFailed, ev.Kind())
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.SubmitTimeout)
	defer cancel()

	select {
	case a.events <- ev:
		return nil
	case <-a.stopping:
		return fmt.Errorf("%w: %s: actor stopping", ErrSubmitFailed, ev.Kind())
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %w", ErrSubmitFailed, ev.Kind(), ctx.Err())
	}
}

// submitWait is Submit without SubmitTimeout: it waits for room in the inbox
// until ctx ends or the actor starts stopping.
func (a *Actor) submitWait(ctx context.Context, ev Event) error {
	select {
	case <-a.stopping:
		return fmt.Errorf("%w: %s: actor stopping", ErrSubmitFailed, ev.Kind())
	default:
	}
	select {
	case a.events <- ev:
		return nil
	case <-a.stopping:
		return fmt.Errorf("%w: %s: actor stopping", ErrSubmitFailed, ev.Kind())
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %w", ErrSubmitFailed, ev.Kind(), ctx.Err())
	}
}

func (a *Actor) handle(ctx context.Context, ev Event) {
	metrics.ActorQueueDepth.Set(float64(len(a.events)))

	ctx, span := a.tracer.Start(ctx, "actor."+ev.Kind(),
		trace.WithAttributes(attribute.String(telemetry.ActorEventKey, ev.Kind())))
	defer span.End()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("actor: panic handling %s: %v", ev.Kind(), r)
			a.logger.Error().
				Str(xglog.FieldEvent, "actor.panic").
				Str(xglog.FieldKind, ev.Kind()).
				Interface("panic", r).
				Msg("recovered panic while handling event")
			if u, ok := ev.(StatusUpdateRequested); ok {
				reply(u.Reply, err)
			}
		}
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(telemetry.ErrorAttributes(errorClass(err))...)
			span.SetStatus(codes.Error, err.Error())
		}
		metrics.IncActorEvent(ev.Kind(), err)
	}()

	switch e := ev.(type) {
	case SessionConnected:
		a.onSessionConnected(e)
	case SessionDisconnected:
		a.onSessionDisconnected(e)
	case WarmCache:
		a.onWarmCache(e)
	case ReportCreated:
		err = a.onReportCreated(ctx, span, e)
	case StatusUpdateRequested:
		err = a.onStatusUpdate(ctx, span, e)
		reply(e.Reply, err)
	case probe:
		e.fn(a)
	default:
		err = fmt.Errorf("actor: unknown event %T", ev)
	}
}

// errorClass buckets handler errors for span attributes.
func errorClass(err error) string {
	switch {
	case errors.Is(err, ErrReportNotFound):
		return "not_found"
	case errors.Is(err, lifecycle.ErrInvalidStatusTransition):
		return "invalid_transition"
	case errors.Is(err, ErrDatabaseUpdateFailed):
		return "storage"
	default:
		return "internal"
	}
}

func reply(ch chan<- error, err error) {
	if ch == nil {
		return
	}
	select {
	case ch <- err:
	default:
	}
}

func (a *Actor) onSessionConnected(e SessionConnected) {
	s := e.Session
	replaced := a.registry.Register(s)
	metrics.SessionsActive.Set(float64(a.registry.Len()))

	evt := a.logger.Info().
		Str(xglog.FieldEvent, "actor.session_connected").
		Str(xglog.FieldUserID, s.UserID.String()).
		Str("session_id", s.ID.String())
	if replaced != nil {
		evt = evt.Str("replaced_session_id", replaced.ID.String())
	}
	evt.Msg("session registered")
}

func (a *Actor) onSessionDisconnected(e SessionDisconnected) {
	removed := a.registry.Deregister(e.User, e.Session)
	metrics.SessionsActive.Set(float64(a.registry.Len()))

	evt := a.logger.Info().
		Str(xglog.FieldEvent, "actor.session_disconnected").
		Str(xglog.FieldUserID, e.User.String()).
		Bool("removed", removed)
	if e.Session != nil {
		evt = evt.Str("session_id", e.Session.ID.String())
	}
	evt.Msg("session closed")
}

func (a *Actor) onWarmCache(e WarmCache) {
	for _, r := range e.Reports {
		a.cache.Put(r.ReportID, r.UserID, r.Status)
	}
	a.logger.Debug().
		Str(xglog.FieldEvent, "actor.cache_warmed").
		Int("reports", len(e.Reports)).
		Int("cached", a.cache.Len()).
		Msg("status cache warmed")
}

func (a *Actor) onReportCreated(ctx context.Context, span trace.Span, e ReportCreated) error {
	r := e.Report
	span.SetAttributes(telemetry.ReportAttributes(r.ReportID.String(), r.UserID.String(), r.Status.String())...)

	a.cache.Put(r.ReportID, r.UserID, r.Status)

	storeCtx, cancel := context.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()
	if err := a.store.InsertReport(storeCtx, r); err != nil {
		// the report stays cached; there is no retry queue
		a.logger.Error().Err(err).
			Str(xglog.FieldEvent, "actor.report_insert_failed").
			Str(xglog.FieldReportID, r.ReportID.String()).
			Str(xglog.FieldUserID, r.UserID.String()).
			Msg("could not store the new report")
		return err
	}

	a.logger.Info().
		Str(xglog.FieldEvent, "actor.report_created").
		Str(xglog.FieldReportID, r.ReportID.String()).
		Str(xglog.FieldUserID, r.UserID.String()).
		Msg("report created")
	return nil
}

func (a *Actor) onStatusUpdate(ctx context.Context, span trace.Span, e StatusUpdateRequested) error {
	logger := a.logger.With().
		Str(xglog.FieldReportID, e.ReportID.String()).
		Str(xglog.FieldNewStatus, e.Status.String()).
		Str(xglog.FieldSource, e.Source).
		Logger()
	span.SetAttributes(telemetry.ReportAttributes(e.ReportID.String(), "", e.Status.String())...)
	span.SetAttributes(attribute.String(telemetry.ActorSourceKey, e.Source))

	current, ok := a.resolveStatus(ctx, logger, e.ReportID)
	if !ok {
		logger.Warn().Str(xglog.FieldEvent, "actor.report_not_found").Msg("status update for unknown report")
		return fmt.Errorf("%w: %s", ErrReportNotFound, e.ReportID)
	}
	span.SetAttributes(attribute.String(telemetry.ReportFromKey, current.String()))

	next, err := lifecycle.Transition(current, e.Status)
	metrics.IncTransition(current.String(), e.Status.String(), err == nil)
	if err != nil {
		logger.Warn().
			Str(xglog.FieldEvent, "actor.status_update_rejected").
			Str(xglog.FieldOldStatus, current.String()).
			Msg("invalid status transition")
		return err
	}

	storeCtx, cancel := context.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()
	owner, found, err := a.store.UpdateStatus(storeCtx, e.ReportID, next)
	if err != nil {
		logger.Error().Err(err).
			Str(xglog.FieldEvent, "actor.store_update_failed").
			Str(xglog.FieldOldStatus, current.String()).
			Msg("could not update the database")
		return fmt.Errorf("%w: %w", ErrDatabaseUpdateFailed, err)
	}
	if !found {
		logger.Warn().Str(xglog.FieldEvent, "actor.report_vanished").Msg("report disappeared from the store")
		return fmt.Errorf("%w: %s", ErrReportNotFound, e.ReportID)
	}

	a.cache.Put(e.ReportID, owner, next)
	span.SetAttributes(attribute.String(telemetry.UserIDKey, owner.String()))
	logger.Info().
		Str(xglog.FieldEvent, "actor.status_updated").
		Str(xglog.FieldOldStatus, current.String()).
		Str(xglog.FieldUserID, owner.String()).
		Msg("report status updated")

	a.deliver(owner, StatusChanged{ReportID: e.ReportID, Status: next})
	return nil
}

// resolveStatus consults the cache, then the store. A store error on the
// fallback read is logged and treated as not found.
func (a *Actor) resolveStatus(ctx context.Context, logger zerolog.Logger, id uuid.UUID) (model.Status, bool) {
	if entry, ok := a.cache.Get(id); ok {
		return entry.Status, true
	}

	storeCtx, cancel := context.WithTimeout(ctx, a.cfg.StoreTimeout)
	defer cancel()
	st, found, err := a.store.GetStatus(storeCtx, id)
	if err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "actor.status_lookup_failed").Msg("store status lookup failed")
		return "", false
	}
	return st, found
}

func (a *Actor) deliver(owner uuid.UUID, d Delivery) {
	s, ok := a.registry.Lookup(owner)
	if !ok {
		metrics.IncDelivery(metrics.DeliveryNoSession)
		return
	}

	outcome := s.deliver(d, a.cfg.DeliveryTimeout)
	metrics.IncDelivery(outcome)
	if outcome != metrics.DeliveryDelivered {
		a.logger.Warn().
			Err(ErrDeliveryFailed).
			Str(xglog.FieldEvent, "actor.delivery_dropped").
			Str(xglog.FieldUserID, owner.String()).
			Str("session_id", s.ID.String()).
			Str("reason", outcome).
			Msg("dropped delivery to session")
	}
}
