// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MigrateAndCheck(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, []string{
		`CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY, v TEXT)`,
		`INSERT INTO t (v) VALUES ('x')`,
	}))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM t`).Scan(&n))
	assert.Equal(t, 1, n)

	problems, err := QuickCheck(ctx, db)
	require.NoError(t, err)
	assert.Nil(t, problems)
}

func TestMigrate_RollsBackOnError(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	err = Migrate(ctx, db, []string{
		`CREATE TABLE a (id INTEGER)`,
		`THIS IS NOT SQL`,
	})
	require.Error(t, err)

	var name string
	err = db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name='a'`).Scan(&name)
	assert.Error(t, err, "table a must not survive a failed migration")
}
