// SPDX-License-Identifier: MIT

package daemon

import "errors"

var (
	// ErrServerStartFailed is returned when the HTTP listener cannot be opened.
	ErrServerStartFailed = errors.New("server failed to start")

	// ErrUnknownBus is returned for an unrecognised bus backend.
	ErrUnknownBus = errors.New("unknown bus backend")
)
