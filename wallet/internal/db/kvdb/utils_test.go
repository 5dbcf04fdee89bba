package kvdb

import (
	"crypto/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/stretchr/testify/require"
)

const defaultDBTimeout = 10 * time.Second

// newTestRegistry creates a registry in a temporary bdb file. The registry
// is closed when the test completes.
func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "registry.db")

	registry, err := Create(dbPath, defaultDBTimeout)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = registry.Close()
	})

	return registry, dbPath
}

// randomID returns a random document id.
func randomID(t *testing.T) chainhash.Hash {
	t.Helper()

	var id chainhash.Hash
	_, err := rand.Read(id[:])
	require.NoError(t, err)

	return id
}
