// SPDX-License-Identifier: MIT

// Package daemon wires the report service together and owns its lifecycle.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/ManuGH/reportstream/internal/api"
	"github.com/ManuGH/reportstream/internal/api/middleware"
	"github.com/ManuGH/reportstream/internal/bus"
	"github.com/ManuGH/reportstream/internal/config"
	"github.com/ManuGH/reportstream/internal/domain/report/actor"
	"github.com/ManuGH/reportstream/internal/domain/report/store"
	"github.com/ManuGH/reportstream/internal/health"
	"github.com/ManuGH/reportstream/internal/log"
	"github.com/ManuGH/reportstream/internal/statusfeed"
	"github.com/ManuGH/reportstream/internal/telemetry"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ShutdownHook releases a resource after every loop has stopped.
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// App owns the actor, the status feed, the HTTP server and the resources
// behind them.
type App struct {
	cfg    config.AppConfig
	logger zerolog.Logger

	actor    *actor.Actor
	consumer *statusfeed.Consumer
	producer *statusfeed.Producer
	handler  http.Handler

	hooks []namedHook

	addrOnce sync.Once
	ready    chan struct{}
	addr     net.Addr
}

// New opens every dependency named by cfg. On error, whatever was already
// opened is released.
func New(ctx context.Context, cfg config.AppConfig) (app *App, err error) {
	logger := log.WithComponent("daemon")
	a := &App{
		cfg:    cfg,
		logger: logger,
		ready:  make(chan struct{}),
	}
	defer func() {
		if err != nil {
			a.runHooks(context.Background())
		}
	}()

	tp, err := telemetry.NewProvider(ctx, telemetryConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	a.onShutdown("telemetry", tp.Shutdown)

	st, err := store.Open(ctx, storeConfig(cfg.Store), log.WithComponent("store"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.onShutdown("store", func(context.Context) error { return st.Close() })

	b, err := openBus(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}
	a.onShutdown("bus", func(context.Context) error { return b.Close() })

	a.actor = actor.New(st, actorConfig(cfg.Actor),
		actor.WithLogger(log.WithComponent("actor")),
		actor.WithTracer(telemetry.Tracer("reportstream/actor")),
	)
	a.producer = statusfeed.NewProducer(b, cfg.Bus.Topic, cfg.Bus.OutboxSize).
		WithLogger(log.WithComponent("statusfeed.producer"))
	a.consumer = statusfeed.NewConsumer(b, cfg.Bus.Topic, a.actor).
		WithLogger(log.WithComponent("statusfeed.consumer"))

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewPingChecker("store", st.Ping))
	if p, ok := b.(pinger); ok {
		hm.RegisterChecker(health.NewPingChecker("bus", p.Ping))
	}
	hm.RegisterChecker(health.NewLoopChecker("actor", a.actorStats))

	a.handler = api.NewServer(api.Config{
		KeepAliveInterval: cfg.SSE.KeepAliveInterval,
		KeepAliveText:     cfg.SSE.KeepAliveText,
		Stack:             stackConfig(cfg),
	}, api.Deps{
		Actor:   a.actor,
		Reports: st,
		Updates: a.producer,
		Health:  hm,
	}).Handler()

	logger.Info().
		Str(log.FieldEvent, "daemon.initialized").
		Str("store", cfg.Store.Backend).
		Str("bus", cfg.Bus.Backend).
		Str("topic", cfg.Bus.Topic).
		Msg("dependencies ready")
	return a, nil
}

func stackConfig(cfg config.AppConfig) middleware.StackConfig {
	sc := middleware.StackConfig{
		AllowedOrigins:        cfg.API.CORS.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
		RateLimit: middleware.RateLimitConfig{
			Enabled: cfg.API.RateLimit.Enabled,
			RPS:     cfg.API.RateLimit.RPS,
			Burst:   cfg.API.RateLimit.Burst,
			Exempt:  []string{"/healthz", "/readyz", "/metrics"},
		},
	}
	if cfg.Telemetry.Enabled {
		sc.TracingService = cfg.LogService
	}
	return sc
}

func (a *App) actorStats(ctx context.Context) (health.QueueStats, error) {
	st, err := a.actor.Stats(ctx)
	if err != nil {
		return health.QueueStats{}, err
	}
	return health.QueueStats{
		Depth:    st.QueueDepth,
		Capacity: a.actor.Config().QueueSize,
		Sessions: st.Sessions,
	}, nil
}

func (a *App) onShutdown(name string, hook ShutdownHook) {
	a.hooks = append(a.hooks, namedHook{name: name, hook: hook})
}

// Ready is closed once the HTTP listener is bound.
func (a *App) Ready() <-chan struct{} { return a.ready }

// Addr is the bound listen address; valid after Ready.
func (a *App) Addr() net.Addr { return a.addr }

// Handler exposes the HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves until ctx is canceled or a loop fails. Shutdown order: HTTP
// and the status feed first, then the actor drains, then hooks run in
// reverse registration order.
func (a *App) Run(ctx context.Context) error {
	actorCtx, stopActor := context.WithCancel(context.WithoutCancel(ctx))
	defer stopActor()
	actorDone := make(chan error, 1)
	go func() { actorDone <- a.actor.Run(actorCtx) }()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.serveHTTP(gctx) })
	g.Go(func() error {
		a.runConsumer(gctx)
		return nil
	})
	g.Go(func() error { return a.producer.Run(gctx) })
	err := g.Wait()

	stopActor()
	if aerr := <-actorDone; aerr != nil {
		err = errors.Join(err, aerr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()
	if herr := a.runHooks(shutdownCtx); herr != nil {
		err = errors.Join(err, herr)
	}

	if err != nil {
		return err
	}
	a.logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("daemon stopped cleanly")
	return nil
}

// runConsumer keeps the service up when the bus is gone: pushes from HTTP
// still work and readiness reports the bus.
func (a *App) runConsumer(ctx context.Context) {
	err := a.consumer.Run(ctx)
	switch {
	case err == nil:
	case errors.Is(err, bus.ErrBrokersUnreachable):
		a.logger.Error().Err(err).
			Str(log.FieldEvent, "daemon.consumer_halted").
			Msg("status feed consumer stopped: all brokers are down")
	default:
		a.logger.Error().Err(err).
			Str(log.FieldEvent, "daemon.consumer_failed").
			Msg("status feed consumer stopped")
	}
}

func (a *App) serveHTTP(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrServerStartFailed, err)
	}
	a.addrOnce.Do(func() {
		a.addr = ln.Addr()
		close(a.ready)
	})

	// request contexts derive from streams so open event streams end when
	// shutdown starts
	streams, endStreams := context.WithCancel(context.WithoutCancel(ctx))
	defer endStreams()

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		BaseContext:       func(net.Listener) context.Context { return streams },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	a.logger.Info().
		Str(log.FieldEvent, "daemon.listening").
		Str("addr", ln.Addr().String()).
		Msg("HTTP server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info().Str(log.FieldEvent, "daemon.shutdown").Msg("shutting down HTTP server")
	endStreams()
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		<-errCh
		return fmt.Errorf("http shutdown: %w", err)
	}
	<-errCh
	return nil
}

func (a *App) runHooks(ctx context.Context) error {
	var errs []error
	for i := len(a.hooks) - 1; i >= 0; i-- {
		h := a.hooks[i]
		start := time.Now()
		if err := h.hook(ctx); err != nil {
			a.logger.Error().Err(err).
				Str("hook", h.name).
				Dur("duration", time.Since(start)).
				Msg("shutdown hook failed")
			errs = append(errs, fmt.Errorf("hook %s: %w", h.name, err))
		}
	}
	a.hooks = nil
	return errors.Join(errs...)
}
