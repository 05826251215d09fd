// SPDX-License-Identifier: MIT

package actor

import (
	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/google/uuid"
)

// Event is the inbound protocol consumed by the actor. The set is closed:
// only the types in this file implement it.
type Event interface {
	Kind() string
}

// Event kinds, used for logs and metric labels.
const (
	KindSessionConnected      = "session_connected"
	KindSessionDisconnected   = "session_disconnected"
	KindWarmCache             = "warm_cache"
	KindReportCreated         = "report_created"
	KindStatusUpdateRequested = "status_update_requested"
)

// Update sources.
const (
	SourceSession = "session"
	SourceBus     = "bus"
)

// SessionConnected registers Session for its user, replacing any earlier entry.
type SessionConnected struct {
	Session *Session
}

// SessionDisconnected removes the registry entry for User. When Session is
// set the entry is removed only if it still belongs to that session, so a
// late disconnect cannot evict a newer connection for the same user.
type SessionDisconnected struct {
	User    uuid.UUID
	Session *Session
}

// WarmCache bulk-loads listing results into the status cache.
type WarmCache struct {
	Reports []model.Report
}

// ReportCreated caches and persists a new report. It never produces a delivery.
type ReportCreated struct {
	Report model.Report
}

// StatusUpdateRequested asks the actor to move a report to Status. Reply, when
// set, receives exactly one value: nil on success or the failure. It must have
// room for that value; the actor never blocks on it.
type StatusUpdateRequested struct {
	ReportID uuid.UUID
	Status   model.Status
	Source   string
	Reply    chan<- error
}

func (SessionConnected) Kind() string      { return KindSessionConnected }
func (SessionDisconnected) Kind() string   { return KindSessionDisconnected }
func (WarmCache) Kind() string             { return KindWarmCache }
func (ReportCreated) Kind() string         { return KindReportCreated }
func (StatusUpdateRequested) Kind() string { return KindStatusUpdateRequested }

// Delivery is the outbound protocol written to a session's channel.
type Delivery interface {
	isDelivery()
}

// StatusChanged tells the owner that a report moved to Status.
type StatusChanged struct {
	ReportID uuid.UUID    `json:"id"`
	Status   model.Status `json:"status"`
}

// ReportCreatedEcho is part of the protocol but the actor never emits it to
// the creating session. Transports must ignore it.
type ReportCreatedEcho struct {
	Report model.Report
}

func (StatusChanged) isDelivery()     {}
func (ReportCreatedEcho) isDelivery() {}
