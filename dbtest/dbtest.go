// Package dbtest provides an in-memory sqlite bun database for tests, built
// through the same CreateTables path as production. A single connection
// serializes writers, which keeps concurrent-registration tests
// deterministic.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/sundayrunners/attendapi/db"
)

// New returns an in-memory database with the full schema applied.
func New(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bdb := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, db.CreateTables(context.Background(), bdb))

	t.Cleanup(func() { _ = bdb.Close() })
	return bdb
}
