// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ManuGH/reportstream/internal/domain/report/actor"
	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/log"
	"github.com/ManuGH/reportstream/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	user, r, ok := requireUser(w, r)
	if !ok {
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")

	report, err := s.deps.Actor.CreateReport(r.Context(), user)
	if err != nil {
		logger.Error().Err(err).Str(log.FieldEvent, "report.create_failed").Msg("unable to create report")
		writeError(w, r, http.StatusInternalServerError, codeUnavailable, "unable to create a new report")
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		telemetry.ReportAttributes(report.ReportID.String(), user.String(), report.Status.String())...)
	logger.Info().
		Str(log.FieldEvent, "report.created").
		Str(log.FieldReportID, report.ReportID.String()).
		Msg("created new report")
	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	user, r, ok := requireUser(w, r)
	if !ok {
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")

	reports, err := s.deps.Reports.ListReports(r.Context(), user)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "report.list_failed").Msg("unable to fetch reports")
		writeError(w, r, http.StatusInternalServerError, codeStorage, "unable to fetch reports")
		return
	}
	if reports == nil {
		reports = []model.Report{}
	}

	if err := s.deps.Actor.WarmCache(r.Context(), reports); err != nil {
		logger.Warn().Err(err).
			Str(log.FieldEvent, "report.warm_cache_failed").
			Int("count", len(reports)).
			Msg("unable to cache reports")
	}
	writeJSON(w, http.StatusOK, reports)
}

// handleUpdateStatus publishes the update to the bus and answers 202. With
// wait=true it goes straight to the actor and reports the verdict.
func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	user, r, ok := requireUser(w, r)
	if !ok {
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")

	wait := false
	if raw := r.URL.Query().Get("wait"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, codeInvalidInput, "wait must be a boolean")
			return
		}
		wait = v
	}

	u, err := decodeUpdate(w, r)
	if err != nil {
		code := codeInvalidInput
		if errors.Is(err, model.ErrInvalidStatus) {
			code = codeInvalidStatus
		}
		writeError(w, r, http.StatusBadRequest, code, err.Error())
		return
	}

	trace.SpanFromContext(r.Context()).SetAttributes(
		telemetry.ReportAttributes(u.ID.String(), user.String(), u.Status.String())...)
	logger = logger.With().
		Str(log.FieldReportID, u.ID.String()).
		Str(log.FieldNewStatus, u.Status.String()).
		Logger()

	if !wait {
		if err := s.deps.Updates.Enqueue(u); err != nil {
			logger.Error().Err(err).Str(log.FieldEvent, "report.update_enqueue_failed").Msg("unable to send status update")
			writeError(w, r, http.StatusInternalServerError, codePublish, "unable to send status update")
			return
		}
		logger.Info().Str(log.FieldEvent, "report.update_enqueued").Msg("status update sent")
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if err := s.deps.Actor.UpdateStatus(r.Context(), u, actor.SourceSession); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "report.update_rejected").Msg("status update rejected")
		writeUpdateError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func decodeUpdate(w http.ResponseWriter, r *http.Request) (model.StatusUpdate, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	var u model.StatusUpdate
	if err := dec.Decode(&u); err != nil {
		if errors.Is(err, model.ErrInvalidStatus) {
			return model.StatusUpdate{}, err
		}
		return model.StatusUpdate{}, errors.New("body must be {\"id\": <uuid>, \"status\": <status>}")
	}
	if u.ID == uuid.Nil {
		return model.StatusUpdate{}, errors.New("id is required")
	}
	if u.Status == "" {
		return model.StatusUpdate{}, errors.New("status is required")
	}
	return u, nil
}
