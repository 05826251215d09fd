// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"time"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/domain/report/ports"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reportstream_store_ops_total",
			Help: "Total report store operations",
		},
		[]string{"backend", "op", "result"}, // result=success/error
	)
	storeLat = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reportstream_store_op_seconds",
			Help:    "Report store operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

// InstrumentedStore wraps any ports.Store to capture metrics. It forwards
// Ping and Close when the inner store supports them.
type InstrumentedStore struct {
	inner   ports.Store
	backend string
}

func NewInstrumentedStore(inner ports.Store, backend string) *InstrumentedStore {
	return &InstrumentedStore{inner: inner, backend: backend}
}

// Unwrap returns the wrapped store.
func (i *InstrumentedStore) Unwrap() ports.Store { return i.inner }

func (i *InstrumentedStore) observe(op string, start time.Time, err error) {
	res := "success"
	if err != nil {
		res = "error"
	}
	storeOps.WithLabelValues(i.backend, op, res).Inc()
	storeLat.WithLabelValues(i.backend, op).Observe(time.Since(start).Seconds())
}

func (i *InstrumentedStore) InsertReport(ctx context.Context, r model.Report) (err error) {
	start := time.Now()
	defer func() { i.observe("insert_report", start, err) }()
	return i.inner.InsertReport(ctx, r)
}

func (i *InstrumentedStore) ListReports(ctx context.Context, owner uuid.UUID) (list []model.Report, err error) {
	start := time.Now()
	defer func() { i.observe("list_reports", start, err) }()
	return i.inner.ListReports(ctx, owner)
}

func (i *InstrumentedStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) (owner uuid.UUID, found bool, err error) {
	start := time.Now()
	defer func() { i.observe("update_status", start, err) }()
	return i.inner.UpdateStatus(ctx, id, status)
}

func (i *InstrumentedStore) GetStatus(ctx context.Context, id uuid.UUID) (st model.Status, found bool, err error) {
	start := time.Now()
	defer func() { i.observe("get_status", start, err) }()
	return i.inner.GetStatus(ctx, id)
}

func (i *InstrumentedStore) Ping(ctx context.Context) (err error) {
	p, ok := i.inner.(ports.Pinger)
	if !ok {
		return nil
	}
	start := time.Now()
	defer func() { i.observe("ping", start, err) }()
	return p.Ping(ctx)
}

func (i *InstrumentedStore) Close() error {
	if c, ok := i.inner.(ports.Closer); ok {
		return c.Close()
	}
	return nil
}
