package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/cipher"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func newTestCipher(t *testing.T) *cipher.FieldCipher {
	t.Helper()
	c, err := cipher.New("store-test-passphrase")
	require.NoError(t, err)
	return c
}

// newTestConnection creates a valid connection in db and returns its id, for
// tests of repositories that require a foreign-keyed connection_id.
func newTestConnection(t *testing.T, db *gorm.DB) int {
	t.Helper()
	repo := NewConnectionRepository(db, newTestCipher(t))
	created, err := repo.Create(newValidConnection())
	require.NoError(t, err)
	return created.ID
}
