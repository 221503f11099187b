package repositories

import (
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

// newTestDB opens a throwaway in-memory badger instance.
func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	options := badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR)
	db, err := badger.Open(options)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
