// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldUserID    = "user_id"
	FieldReportID  = "report_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldKind      = "kind"
	FieldSource    = "source"

	// State fields
	FieldOldStatus = "old_status"
	FieldNewStatus = "new_status"

	// Bus fields
	FieldTopic     = "topic"
	FieldPartition = "partition"
	FieldOffset    = "offset"
)
