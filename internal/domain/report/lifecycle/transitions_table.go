// SPDX-License-Identifier: MIT

// Package lifecycle is the report status state machine. It is pure: no I/O,
// no clock, no shared state.
package lifecycle

import "github.com/ManuGH/reportstream/internal/domain/report/model"

// Edge is a single allowed move in the report lifecycle.
type Edge struct {
	From model.Status
	To   model.Status
}

// transitionsTable is exhaustive. Any pair not listed is rejected,
// including same-to-same.
var transitionsTable = []Edge{
	// Intake: a pending report is queued for a worker or canceled by its owner.
	{From: model.StatusPending, To: model.StatusQueued},
	{From: model.StatusPending, To: model.StatusCanceled},

	// A queued report is picked up or canceled before processing begins.
	{From: model.StatusQueued, To: model.StatusProcessing},
	{From: model.StatusQueued, To: model.StatusCanceled},

	// Processing ends in failure or success.
	{From: model.StatusProcessing, To: model.StatusFailed},
	{From: model.StatusProcessing, To: model.StatusCompleted},

	// Retry.
	{From: model.StatusCanceled, To: model.StatusPending},
	{From: model.StatusFailed, To: model.StatusPending},
}

var allowed = func() map[Edge]struct{} {
	idx := make(map[Edge]struct{}, len(transitionsTable))
	for _, e := range transitionsTable {
		idx[e] = struct{}{}
	}
	return idx
}()

// Allowed reports whether current may move to requested.
func Allowed(current, requested model.Status) bool {
	_, ok := allowed[Edge{From: current, To: requested}]
	return ok
}

// Next returns the statuses reachable from current in one step.
func Next(current model.Status) []model.Status {
	var out []model.Status
	for _, e := range transitionsTable {
		if e.From == current {
			out = append(out, e.To)
		}
	}
	return out
}

// Transition validates current -> requested and returns the new status.
func Transition(current, requested model.Status) (model.Status, error) {
	if !Allowed(current, requested) {
		return current, &InvalidTransitionError{Current: current, Requested: requested}
	}
	return requested, nil
}
