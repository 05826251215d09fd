// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/domain/report/ports"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLiteStore(context.Background(), SQLiteConfig{
		Path: filepath.Join(t.TempDir(), "reports.sqlite"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) ports.Store { return openTestSQLite(t) })
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	_, err := OpenSQLiteStore(context.Background(), SQLiteConfig{})
	require.Error(t, err)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.sqlite")
	ctx := context.Background()

	s, err := OpenSQLiteStore(ctx, SQLiteConfig{Path: path})
	require.NoError(t, err)
	r := model.NewReport(uuid.New())
	require.NoError(t, s.InsertReport(ctx, r))
	_, _, err = s.UpdateStatus(ctx, r.ReportID, model.StatusCanceled)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLiteStore(ctx, SQLiteConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()

	st, found, err := s.GetStatus(ctx, r.ReportID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, model.StatusCanceled, st)
}

func TestSQLiteStore_UnparseableStatusReadsAsMissing(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()
	owner, id := uuid.New(), uuid.New()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reports (report_id, user_id, status) VALUES (?, ?, 'archived')`,
		id.String(), owner.String())
	require.NoError(t, err)

	_, found, err := s.GetStatus(ctx, id)
	require.NoError(t, err)
	assert.False(t, found)

	list, err := s.ListReports(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, list)
}
