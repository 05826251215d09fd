// SPDX-License-Identifier: MIT

package actor

import "errors"

var (
	// ErrReportNotFound means neither the cache nor the store knows the report.
	ErrReportNotFound = errors.New("report not found")
	// ErrDatabaseUpdateFailed means the store rejected a validated transition.
	// The cache is left untouched.
	ErrDatabaseUpdateFailed = errors.New("database update failed")
	// ErrSubmitFailed means an event could not be handed to the actor before
	// the caller's deadline, or the actor is shutting down.
	ErrSubmitFailed = errors.New("actor: submit failed")
	// ErrDeliveryFailed means a session's channel was full or closed.
	ErrDeliveryFailed = errors.New("actor: delivery failed")
)
