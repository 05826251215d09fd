// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ManuGH/reportstream/internal/domain/report/actor"
	"github.com/ManuGH/reportstream/internal/domain/report/lifecycle"
	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/log"
)

const (
	codeInvalidInput      = "INVALID_INPUT"
	codeInvalidStatus     = "INVALID_STATUS"
	codeNotFound          = "NOT_FOUND"
	codeInvalidTransition = "INVALID_TRANSITION"
	codeMethodNotAllowed  = "METHOD_NOT_ALLOWED"
	codeStorage           = "STORAGE_FAILURE"
	codeUnavailable       = "ACTOR_UNAVAILABLE"
	codePublish           = "PUBLISH_FAILURE"
	codeInternal          = "INTERNAL"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, errorBody{
		Error:     msg,
		Code:      code,
		RequestID: log.RequestIDFromContext(r.Context()),
	})
}

// writeUpdateError maps an actor verdict to a response.
func writeUpdateError(w http.ResponseWriter, r *http.Request, err error) {
	var transition *lifecycle.InvalidTransitionError
	switch {
	case errors.Is(err, model.ErrInvalidStatus):
		writeError(w, r, http.StatusBadRequest, codeInvalidStatus, err.Error())
	case errors.Is(err, actor.ErrReportNotFound):
		writeError(w, r, http.StatusNotFound, codeNotFound, "report not found")
	case errors.As(err, &transition):
		writeError(w, r, http.StatusConflict, codeInvalidTransition, transition.Error())
	case errors.Is(err, actor.ErrDatabaseUpdateFailed):
		writeError(w, r, http.StatusInternalServerError, codeStorage, "unable to update report")
	case errors.Is(err, actor.ErrSubmitFailed):
		writeError(w, r, http.StatusInternalServerError, codeUnavailable, "unable to submit update")
	default:
		writeError(w, r, http.StatusInternalServerError, codeInternal, "internal server error")
	}
}
