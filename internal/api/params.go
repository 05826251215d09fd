// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"net/http"

	"github.com/ManuGH/reportstream/internal/log"
	"github.com/google/uuid"
)

var errMissingUserID = errors.New("user_id query parameter is required")

// parseUserID reads and validates the user_id query parameter.
func parseUserID(r *http.Request) (uuid.UUID, error) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return uuid.Nil, errMissingUserID
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.New("user_id must be a UUID")
	}
	return id, nil
}

// requireUser parses user_id and writes a 400 on failure. The returned
// request carries the user id for log correlation.
func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, *http.Request, bool) {
	user, err := parseUserID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, codeInvalidInput, err.Error())
		return uuid.Nil, r, false
	}
	ctx := log.ContextWithUserID(r.Context(), user.String())
	return user, r.WithContext(ctx), true
}
