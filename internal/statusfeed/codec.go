// SPDX-License-Identifier: MIT

// Package statusfeed bridges the message bus and the report actor. The
// consumer turns worker messages into status update events; the producer
// publishes updates requested over HTTP.
package statusfeed

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ManuGH/reportstream/internal/bus"
	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/google/uuid"
)

// DefaultTopic carries status updates in both directions.
const DefaultTopic = "v4_messages"

var (
	// ErrDecodeFailure marks a bus payload that is not a status update.
	ErrDecodeFailure = errors.New("statusfeed: decode failure")
	// ErrPublishFailure marks an update the producer could not accept.
	ErrPublishFailure = errors.New("statusfeed: publish failure")
)

// Encode keys the message by the raw report id bytes so every update for
// one report lands on the same partition.
func Encode(topic string, u model.StatusUpdate) (bus.Message, error) {
	value, err := json.Marshal(u)
	if err != nil {
		return bus.Message{}, fmt.Errorf("%w: %w", ErrPublishFailure, err)
	}
	key := make([]byte, len(u.ID))
	copy(key, u.ID[:])
	return bus.Message{Topic: topic, Key: key, Value: value}, nil
}

// Decode parses a JSON {"id","status"} payload. The key is not consulted.
func Decode(m bus.Message) (model.StatusUpdate, error) {
	var u model.StatusUpdate
	if err := json.Unmarshal(m.Value, &u); err != nil {
		return model.StatusUpdate{}, fmt.Errorf("%w: %w", ErrDecodeFailure, err)
	}
	if u.ID == uuid.Nil {
		return model.StatusUpdate{}, fmt.Errorf("%w: missing report id", ErrDecodeFailure)
	}
	if u.Status == "" {
		return model.StatusUpdate{}, fmt.Errorf("%w: missing status", ErrDecodeFailure)
	}
	return u, nil
}
