// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.sqlite")
	db, err := Open(path, Config{})
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	schema := `CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY, v TEXT)`
	require.NoError(t, Migrate(ctx, db, schema))
	require.NoError(t, Migrate(ctx, db, schema), "migrations must be idempotent")

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestMigrate_RollsBackOnError(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "bad.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	err = Migrate(ctx, db,
		`CREATE TABLE a (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE broken (`,
	)
	require.Error(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'a'`).Scan(&n))
	assert.Zero(t, n, "first statement must be rolled back")
}

func TestVerifyIntegrity(t *testing.T) {
	path := filepath.Join(t.TempDir(), "healthy.sqlite")
	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE test (id INTEGER PRIMARY KEY, data TEXT)`)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		_, err = db.Exec(`INSERT INTO test (data) VALUES ('payload')`)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	ctx := context.Background()
	for _, mode := range []string{VerifyQuick, VerifyFull} {
		issues, err := VerifyIntegrity(ctx, path, mode)
		require.NoError(t, err, mode)
		assert.Nil(t, issues, mode)
	}

	_, err = VerifyIntegrity(ctx, path, "thorough")
	assert.Error(t, err)
}
