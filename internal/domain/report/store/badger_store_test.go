// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/domain/report/ports"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ports.Store {
		s, err := OpenBadgerStore(BadgerConfig{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		return s
	})
}

func TestBadgerStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenBadgerStore(BadgerConfig{Dir: dir})
	require.NoError(t, err)
	r := model.NewReport(uuid.New())
	require.NoError(t, s.InsertReport(ctx, r))
	require.NoError(t, s.Close())

	s, err = OpenBadgerStore(BadgerConfig{Dir: dir})
	require.NoError(t, err)
	defer s.Close()

	list, err := s.ListReports(ctx, r.UserID)
	require.NoError(t, err)
	assert.Equal(t, []model.Report{r}, list)
}

func TestBadgerStore_ReinsertMovesOwnerIndex(t *testing.T) {
	s, err := OpenBadgerStore(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	r := model.NewReport(uuid.New())
	require.NoError(t, s.InsertReport(ctx, r))
	moved := r
	moved.UserID = uuid.New()
	require.NoError(t, s.InsertReport(ctx, moved))

	list, err := s.ListReports(ctx, r.UserID)
	require.NoError(t, err)
	assert.Empty(t, list)

	list, err = s.ListReports(ctx, moved.UserID)
	require.NoError(t, err)
	assert.Equal(t, []model.Report{moved}, list)
}

func TestBadgerStore_RequiresDir(t *testing.T) {
	_, err := OpenBadgerStore(BadgerConfig{})
	assert.Error(t, err)
}
