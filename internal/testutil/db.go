package testutil

import (
	"path/filepath"
	"testing"

	"github.com/BerylCAtieno/document-chat-api/internal/db"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// OpenTestDB returns a migrated SQLite database in a temp dir, closed when
// the test ends.
func OpenTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, db.RunMigrations(path))

	conn, err := db.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}
