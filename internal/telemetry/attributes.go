// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// Report attributes
	ReportIDKey     = "report.id"
	ReportStatusKey = "report.status"
	ReportFromKey   = "report.status_from"
	UserIDKey       = "user.id"

	// Actor attributes
	ActorEventKey  = "actor.event"
	ActorSourceKey = "actor.source"

	// Bus attributes
	BusTopicKey     = "messaging.destination"
	BusPartitionKey = "messaging.partition"
	BusOffsetKey    = "messaging.offset"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// ReportAttributes creates report span attributes. Empty values are omitted.
func ReportAttributes(reportID, userID, status string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if reportID != "" {
		attrs = append(attrs, attribute.String(ReportIDKey, reportID))
	}
	if userID != "" {
		attrs = append(attrs, attribute.String(UserIDKey, userID))
	}
	if status != "" {
		attrs = append(attrs, attribute.String(ReportStatusKey, status))
	}
	return attrs
}

// BusAttributes creates message-bus span attributes.
func BusAttributes(topic string, partition int, offset int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(BusTopicKey, topic),
		attribute.Int(BusPartitionKey, partition),
		attribute.Int64(BusOffsetKey, offset),
	}
}

// ErrorAttributes marks a span as failed with a coarse error class.
func ErrorAttributes(errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
