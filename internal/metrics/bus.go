// SPDX-License-Identifier: MIT

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Bus directions.
const (
	BusIn  = "in"
	BusOut = "out"
)

var (
	BusMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reportstream_bus_messages_total",
		Help: "Bus messages by topic, direction and outcome",
	}, []string{"topic", "direction", "outcome"})

	BusDropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reportstream_bus_drop_total",
		Help: "Total number of bus message drops",
	}, []string{"topic"})

	BusDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reportstream_bus_dropped_total",
		Help: "Total number of bus message drops by topic and reason",
	}, []string{"topic", "reason"})
)

// IncBusMessage records a message handled on topic.
func IncBusMessage(topic, direction, outcome string) {
	if topic == "" {
		topic = "unknown"
	}
	BusMessagesTotal.WithLabelValues(topic, direction, outcome).Inc()
}

// IncBusDropReason records a dropped bus message with a concrete reason.
func IncBusDropReason(topic, reason string) {
	if topic == "" {
		topic = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}
	BusDropsTotal.WithLabelValues(topic).Inc()
	BusDroppedTotal.WithLabelValues(topic, reason).Inc()
}
