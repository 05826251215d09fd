// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ManuGH/reportstream/internal/domain/report/actor"
	"github.com/ManuGH/reportstream/internal/log"
)

// EventReportStatusUpdate names status change frames on the stream.
const EventReportStatusUpdate = "report_status_update"

// handleSSE registers a session for the user and streams its deliveries
// until the client goes away.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	user, r, ok := requireUser(w, r)
	if !ok {
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api.sse")

	sess, err := s.deps.Actor.Connect(r.Context(), user)
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "sse.connect_failed").Msg("unable to register session")
		writeError(w, r, http.StatusInternalServerError, codeUnavailable, "unable to connect")
		return
	}
	defer sess.Close()

	rc := http.NewResponseController(w)
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "sse.flush_unsupported").Msg("response writer cannot stream")
		return
	}

	logger.Info().
		Str(log.FieldEvent, "sse.connected").
		Str("session_id", sess.ID.String()).
		Msg("event stream opened")

	keepAlive := time.NewTicker(s.cfg.KeepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			logger.Info().Str(log.FieldEvent, "sse.disconnected").Msg("event stream closed by client")
			return
		case <-sess.Done():
			return
		case d := <-sess.Deliveries():
			sc, ok := d.(actor.StatusChanged)
			if !ok {
				// creation echoes are never shown to their creator
				continue
			}
			if err := writeEvent(w, EventReportStatusUpdate, sc); err != nil {
				logger.Warn().Err(err).Str(log.FieldEvent, "sse.write_failed").Msg("event stream write failed")
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
			keepAlive.Reset(s.cfg.KeepAliveInterval)
		case <-keepAlive.C:
			if _, err := fmt.Fprintf(w, ": %s\n\n", s.cfg.KeepAliveText); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)
	return err
}
