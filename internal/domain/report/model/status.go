// SPDX-License-Identifier: MIT

package model

import (
	"errors"
	"fmt"
)

// Status is the processing lifecycle of a report. The wire form is lowercase.
type Status string

const (
	StatusPending    Status = "pending"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCanceled   Status = "canceled"
	StatusFailed     Status = "failed"
	StatusCompleted  Status = "completed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusPending,
	StatusQueued,
	StatusProcessing,
	StatusCanceled,
	StatusFailed,
	StatusCompleted,
}

// ErrInvalidStatus matches any *InvalidStatusError.
var ErrInvalidStatus = errors.New("invalid status")

// InvalidStatusError reports a status literal that does not name a Status.
type InvalidStatusError struct {
	Raw string
}

func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", e.Raw)
}

func (e *InvalidStatusError) Is(target error) bool {
	return target == ErrInvalidStatus
}

// ParseStatus accepts the lowercase wire form or its uppercase spelling.
func ParseStatus(raw string) (Status, error) {
	switch raw {
	case "pending", "PENDING":
		return StatusPending, nil
	case "queued", "QUEUED":
		return StatusQueued, nil
	case "processing", "PROCESSING":
		return StatusProcessing, nil
	case "canceled", "CANCELED":
		return StatusCanceled, nil
	case "failed", "FAILED":
		return StatusFailed, nil
	case "completed", "COMPLETED":
		return StatusCompleted, nil
	}
	return "", &InvalidStatusError{Raw: raw}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, err := ParseStatus(string(s))
	return err == nil
}

// IsTerminal returns true if no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted
}

func (s Status) String() string {
	return string(s)
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, &InvalidStatusError{Raw: string(s)}
	}
	return []byte(s), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
