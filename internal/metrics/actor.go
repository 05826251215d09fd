// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors shared across packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcomes.
const (
	DeliveryDelivered     = "delivered"
	DeliveryDroppedFull   = "dropped_full"
	DeliveryDroppedClosed = "dropped_closed"
	DeliveryNoSession     = "no_session"
)

var (
	ActorEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reportstream_actor_events_total",
		Help: "Inbound events processed by the report actor",
	}, []string{"kind", "outcome"}) // outcome=ok|error

	ActorQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reportstream_actor_queue_depth",
		Help: "Events waiting in the actor inbox (sampled per event)",
	})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reportstream_actor_deliveries_total",
		Help: "Outbound deliveries to live sessions by outcome",
	}, []string{"outcome"})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "reportstream_sessions_active",
		Help: "Sessions currently held in the connection registry",
	})

	StatusCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reportstream_status_cache_lookups_total",
		Help: "Status cache lookups by result",
	}, []string{"result"}) // result=hit|miss

	StatusCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reportstream_status_cache_evictions_total",
		Help: "Entries evicted from the status cache to stay within capacity",
	})

	StatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reportstream_status_transitions_total",
		Help: "Requested status transitions by outcome",
	}, []string{"from", "to", "outcome"}) // outcome=accepted|rejected
)

// IncActorEvent records one processed event.
func IncActorEvent(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ActorEventsTotal.WithLabelValues(kind, outcome).Inc()
}

// IncDelivery records a delivery attempt outcome.
func IncDelivery(outcome string) {
	DeliveriesTotal.WithLabelValues(outcome).Inc()
}

// IncCacheLookup records a status cache hit or miss.
func IncCacheLookup(hit bool) {
	if hit {
		StatusCacheLookups.WithLabelValues("hit").Inc()
		return
	}
	StatusCacheLookups.WithLabelValues("miss").Inc()
}

// IncTransition records an accepted or rejected lifecycle transition.
func IncTransition(from, to string, accepted bool) {
	outcome := "accepted"
	if !accepted {
		outcome = "rejected"
	}
	StatusTransitionsTotal.WithLabelValues(from, to, outcome).Inc()
}
