// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/google/uuid"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, backend, op, result string) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, storeOps.WithLabelValues(backend, op, result).Write(&m))
	return m.GetCounter().GetValue()
}

func TestInstrumentedStore_CountsOps(t *testing.T) {
	s := NewInstrumentedStore(NewMemoryStore(), "instrumented-test")
	ctx := context.Background()

	before := counterValue(t, "instrumented-test", "insert_report", "success")
	require.NoError(t, s.InsertReport(ctx, model.NewReport(uuid.New())))
	assert.Equal(t, before+1, counterValue(t, "instrumented-test", "insert_report", "success"))

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	beforeErr := counterValue(t, "instrumented-test", "update_status", "error")
	_, _, err := s.UpdateStatus(canceled, uuid.New(), model.StatusQueued)
	require.Error(t, err)
	assert.Equal(t, beforeErr+1, counterValue(t, "instrumented-test", "update_status", "error"))

	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())
}

func TestOpen_Backends(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s.Unwrap())

	s, err = Open(ctx, Config{Backend: BackendSQLite, SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "r.sqlite")}}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s.Unwrap())
	require.NoError(t, s.Close())

	s, err = Open(ctx, Config{Backend: BackendBadger, Badger: BadgerConfig{InMemory: true}}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, s.Unwrap())
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Backend: "cassandra"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrUnknownBackend)
}
