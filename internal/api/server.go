// SPDX-License-Identifier: MIT

// Package api serves the report HTTP surface: the per-user event stream,
// report creation and listing, and status update submission.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ManuGH/reportstream/internal/api/middleware"
	"github.com/ManuGH/reportstream/internal/domain/report/actor"
	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/health"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Defaults for the event stream.
const (
	DefaultKeepAliveInterval = 30 * time.Second
	DefaultKeepAliveText     = "keep-alive-text"

	maxBodyBytes = 1 << 20
)

// ReportActor is the slice of the actor the handlers drive.
type ReportActor interface {
	Connect(ctx context.Context, user uuid.UUID) (*actor.Session, error)
	CreateReport(ctx context.Context, owner uuid.UUID) (model.Report, error)
	WarmCache(ctx context.Context, reports []model.Report) error
	UpdateStatus(ctx context.Context, u model.StatusUpdate, source string) error
}

// ReportLister reads an owner's reports straight from storage.
type ReportLister interface {
	ListReports(ctx context.Context, owner uuid.UUID) ([]model.Report, error)
}

// UpdatePublisher queues a status update for the message bus.
type UpdatePublisher interface {
	Enqueue(u model.StatusUpdate) error
}

// Config tunes the HTTP surface.
type Config struct {
	KeepAliveInterval time.Duration
	KeepAliveText     string
	Stack             middleware.StackConfig
}

// Deps are the collaborators behind the handlers. Health may be nil.
type Deps struct {
	Actor   ReportActor
	Reports ReportLister
	Updates UpdatePublisher
	Health  *health.Manager
}

// Server holds the HTTP handlers.
type Server struct {
	cfg  Config
	deps Deps
}

// NewServer returns a server; zero Config fields take their defaults.
func NewServer(cfg Config, deps Deps) *Server {
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if cfg.KeepAliveText == "" {
		cfg.KeepAliveText = DefaultKeepAliveText
	}
	if deps.Health == nil {
		deps.Health = health.NewManager("")
	}
	return &Server{cfg: cfg, deps: deps}
}

// Handler builds the router with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := middleware.NewRouter(s.cfg.Stack)

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/sse", s.handleSSE)
	r.Post("/new/report", s.handleCreateReport)
	r.Get("/reports", s.handleListReports)
	r.Put("/report", s.handleUpdateStatus)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	})
	return r
}
