//go:build itest && !test_db_postgres

package itest

import (
	"path/filepath"
	"testing"

	"github.com/mycitadel/mcwallet/wallet/internal/db"
	"github.com/stretchr/testify/require"
)

// NewTestStore opens a SQLite address index with migrations applied. Each
// test gets its own temporary database file.
func NewTestStore(t *testing.T) db.Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "index.db")

	store, dbConn, err := db.Open(db.DriverSQLite, dbPath)
	require.NoError(t, err, "failed to open sqlite database")

	t.Cleanup(func() {
		_ = dbConn.Close()
	})

	return store
}
