// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"testing"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/domain/report/ports"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, open func(t *testing.T) ports.Store) {
	t.Helper()
	sortReports := cmpopts.SortSlices(func(a, b model.Report) bool {
		return a.ReportID.String() < b.ReportID.String()
	})

	t.Run("InsertThenList", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		owner, other := uuid.New(), uuid.New()

		want := []model.Report{model.NewReport(owner), model.NewReport(owner)}
		for _, r := range want {
			require.NoError(t, s.InsertReport(ctx, r))
		}
		require.NoError(t, s.InsertReport(ctx, model.NewReport(other)))

		got, err := s.ListReports(ctx, owner)
		require.NoError(t, err)
		if diff := cmp.Diff(want, got, sortReports); diff != "" {
			t.Fatalf("ListReports mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("ListUnknownOwnerIsEmpty", func(t *testing.T) {
		s := open(t)
		got, err := s.ListReports(context.Background(), uuid.New())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("GetStatus", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		r := model.NewReport(uuid.New())
		require.NoError(t, s.InsertReport(ctx, r))

		st, found, err := s.GetStatus(ctx, r.ReportID)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, model.StatusPending, st)

		_, found, err = s.GetStatus(ctx, uuid.New())
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("UpdateStatusReturnsOwner", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		owner := uuid.New()
		r := model.NewReport(owner)
		require.NoError(t, s.InsertReport(ctx, r))

		gotOwner, found, err := s.UpdateStatus(ctx, r.ReportID, model.StatusQueued)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, owner, gotOwner)

		st, found, err := s.GetStatus(ctx, r.ReportID)
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, model.StatusQueued, st)

		list, err := s.ListReports(ctx, owner)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, model.StatusQueued, list[0].Status)
	})

	t.Run("UpdateMissingReportDoesNotCreate", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		id := uuid.New()

		owner, found, err := s.UpdateStatus(ctx, id, model.StatusQueued)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, uuid.Nil, owner)

		_, found, err = s.GetStatus(ctx, id)
		require.NoError(t, err)
		assert.False(t, found)
	})
}
