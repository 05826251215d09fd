// SPDX-License-Identifier: MIT

// Package ports declares the boundaries the report actor depends on.
package ports

import (
	"context"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/google/uuid"
)

// Store is the durable, authoritative report store. Implementations must be
// safe for concurrent use: the actor writes while the HTTP layer lists.
type Store interface {
	InsertReport(ctx context.Context, r model.Report) error
	ListReports(ctx context.Context, owner uuid.UUID) ([]model.Report, error)
	// UpdateStatus writes the new status and returns the owner of record.
	// found is false when no report with that ID exists.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) (owner uuid.UUID, found bool, err error)
	// GetStatus returns the stored status. found is false when the report
	// is missing or its stored status cannot be parsed.
	GetStatus(ctx context.Context, id uuid.UUID) (status model.Status, found bool, err error)
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is implemented by stores holding connections or file handles.
type Closer interface {
	Close() error
}
