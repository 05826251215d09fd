// SPDX-License-Identifier: MIT

package actor

import (
	"context"
	"fmt"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	xglog "github.com/ManuGH/reportstream/internal/log"
	"github.com/google/uuid"
)

// Connect registers a new session for user and starts its watcher. The
// caller must Close the session when its receiver goes away; the watcher
// then submits exactly one SessionDisconnected for it.
func (a *Actor) Connect(ctx context.Context, user uuid.UUID) (*Session, error) {
	s := NewSession(user, a.cfg.SessionBuffer)
	if err := a.Submit(ctx, SessionConnected{Session: s}); err != nil {
		return nil, err
	}
	if !a.watchers.Go(func() { a.watch(s) }) {
		s.Close()
		return nil, fmt.Errorf("%w: %s: actor stopping", ErrSubmitFailed, KindSessionConnected)
	}
	return s, nil
}

func (a *Actor) watch(s *Session) {
	select {
	case <-s.Done():
	case <-a.stopping:
		return
	}

	// no SubmitTimeout here: only shutdown may end the wait
	if err := a.submitWait(context.Background(), SessionDisconnected{User: s.UserID, Session: s}); err != nil {
		a.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "actor.disconnect_submit_failed").
			Str(xglog.FieldUserID, s.UserID.String()).
			Msg("could not report session disconnect")
	}
}

// CreateReport builds a pending report for owner and submits it. The report
// is returned once the actor has accepted the event; persistence happens
// asynchronously.
func (a *Actor) CreateReport(ctx context.Context, owner uuid.UUID) (model.Report, error) {
	r := model.NewReport(owner)
	if err := a.Submit(ctx, ReportCreated{Report: r}); err != nil {
		return model.Report{}, err
	}
	return r, nil
}

// WarmCache submits listing results to the status cache. Empty input is a no-op.
func (a *Actor) WarmCache(ctx context.Context, reports []model.Report) error {
	if len(reports) == 0 {
		return nil
	}
	return a.Submit(ctx, WarmCache{Reports: reports})
}

// RequestStatusUpdate submits an update without waiting for its outcome.
// A full inbox suspends the caller instead of dropping the update; the wait
// ends only with ctx or actor shutdown.
func (a *Actor) RequestStatusUpdate(ctx context.Context, u model.StatusUpdate, source string) error {
	return a.submitWait(ctx, StatusUpdateRequested{ReportID: u.ID, Status: u.Status, Source: source})
}

// UpdateStatus submits an update and waits for the actor's verdict: nil,
// ErrReportNotFound, a *lifecycle.InvalidTransitionError, ErrDatabaseUpdateFailed
// or ErrSubmitFailed.
func (a *Actor) UpdateStatus(ctx context.Context, u model.StatusUpdate, source string) error {
	replyCh := make(chan error, 1)
	err := a.Submit(ctx, StatusUpdateRequested{
		ReportID: u.ID,
		Status:   u.Status,
		Source:   source,
		Reply:    replyCh,
	})
	if err != nil {
		return err
	}

	select {
	case err := <-replyCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: awaiting outcome: %w", ErrSubmitFailed, ctx.Err())
	case <-a.stopped:
		select {
		case err := <-replyCh:
			return err
		default:
			return fmt.Errorf("%w: actor stopped before handling update", ErrSubmitFailed)
		}
	}
}

// Stats is a point-in-time view of actor-owned state.
type Stats struct {
	Sessions    int
	CachedItems int
	QueueDepth  int
}

// probe runs fn on the actor goroutine. It lets callers read actor-owned
// state without sharing it.
type probe struct {
	fn func(*Actor)
}

func (probe) Kind() string { return "probe" }

// Stats round-trips through the inbox, so a successful call also proves the
// loop is alive.
func (a *Actor) Stats(ctx context.Context) (Stats, error) {
	out := make(chan Stats, 1)
	err := a.Submit(ctx, probe{fn: func(a *Actor) {
		out <- Stats{
			Sessions:    a.registry.Len(),
			CachedItems: a.cache.Len(),
			QueueDepth:  len(a.events),
		}
	}})
	if err != nil {
		return Stats{}, err
	}
	select {
	case s := <-out:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-a.stopped:
		select {
		case s := <-out:
			return s, nil
		default:
			return Stats{}, fmt.Errorf("%w: actor stopped", ErrSubmitFailed)
		}
	}
}
