// SPDX-License-Identifier: MIT

// Package model holds the report domain types shared by the actor, the stores,
// the bus codec and the HTTP layer.
package model

import "github.com/google/uuid"

// Report is a unit of work owned by a user. Only Status ever changes.
type Report struct {
	UserID   uuid.UUID `json:"userId"`
	ReportID uuid.UUID `json:"reportId"`
	Status   Status    `json:"reportStatus"`
}

// NewReport returns a fresh pending report for owner.
func NewReport(owner uuid.UUID) Report {
	return Report{
		UserID:   owner,
		ReportID: uuid.New(),
		Status:   StatusPending,
	}
}

// StatusUpdate asks for report ID to move to Status. It carries no owner.
type StatusUpdate struct {
	ID     uuid.UUID `json:"id"`
	Status Status    `json:"status"`
}
