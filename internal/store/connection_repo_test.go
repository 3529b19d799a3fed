package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValidConnection() *Connection {
	return &Connection{
		Name:                "Acme",
		OdooURL:             "https://acme.odoo.com",
		OdooDB:              "acme_prod",
		OdooUsername:        "integration@acme.com",
		OdooAPIKey:          "super-secret-key",
		WebhookURL:          "https://hooks.example.com/acme",
		WebhookSecret:       "webhook-secret",
		PollIntervalSeconds: 60,
		Enabled:             true,
	}
}

func TestConnectionRepository_CreateEncryptsAndGetDecrypts(t *testing.T) {
	db := newTestDB(t)
	repo := NewConnectionRepository(db, newTestCipher(t))

	created, err := repo.Create(newValidConnection())
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	var raw Connection
	require.NoError(t, db.First(&raw, "id = ?", created.ID).Error)
	assert.NotEqual(t, "super-secret-key", raw.OdooAPIKey, "secret fields must be ciphertext at rest")
	assert.NotEqual(t, "webhook-secret", raw.WebhookSecret)

	got, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-key", got.OdooAPIKey)
	assert.Equal(t, "webhook-secret", got.WebhookSecret)
	assert.Equal(t, CircuitClosed, got.CircuitState)
}

func TestConnectionRepository_CreateRejectsInvalid(t *testing.T) {
	db := newTestDB(t)
	repo := NewConnectionRepository(db, newTestCipher(t))

	invalid := newValidConnection()
	invalid.Name = ""
	_, err := repo.Create(invalid)
	assert.Error(t, err)

	invalid = newValidConnection()
	invalid.OdooURL = "not-a-url"
	_, err = repo.Create(invalid)
	assert.Error(t, err)

	invalid = newValidConnection()
	invalid.PollIntervalSeconds = 0
	_, err = repo.Create(invalid)
	assert.Error(t, err)
}

func TestConnectionRepository_GetNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewConnectionRepository(db, newTestCipher(t))

	_, err := repo.Get(999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConnectionRepository_ListAllSortedByName(t *testing.T) {
	db := newTestDB(t)
	repo := NewConnectionRepository(db, newTestCipher(t))

	for _, name := range []string{"Zebra", "Acme", "Mango"} {
		c := newValidConnection()
		c.Name = name
		_, err := repo.Create(c)
		require.NoError(t, err)
	}

	rows, err := repo.ListAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Acme", "Mango", "Zebra"}, []string{rows[0].Name, rows[1].Name, rows[2].Name})
}

func TestConnectionRepository_ListEnabledExcludesDisabled(t *testing.T) {
	db := newTestDB(t)
	repo := NewConnectionRepository(db, newTestCipher(t))

	enabled := newValidConnection()
	enabled.Name = "Enabled Co"
	_, err := repo.Create(enabled)
	require.NoError(t, err)

	disabled := newValidConnection()
	disabled.Name = "Disabled Co"
	disabled.Enabled = false
	_, err = repo.Create(disabled)
	require.NoError(t, err)

	rows, err := repo.ListEnabled()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Enabled Co", rows[0].Name)
}

func TestConnectionRepository_UpdateRotatesSecrets(t *testing.T) {
	db := newTestDB(t)
	repo := NewConnectionRepository(db, newTestCipher(t))

	created, err := repo.Create(newValidConnection())
	require.NoError(t, err)

	created.OdooAPIKey = "rotated-key"
	created.Name = "Acme Renamed"
	updated, err := repo.Update(created)
	require.NoError(t, err)
	assert.Equal(t, "Acme Renamed", updated.Name)

	got, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "rotated-key", got.OdooAPIKey)
	assert.Equal(t, "Acme Renamed", got.Name)
}

func TestConnectionRepository_DeleteRemovesRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewConnectionRepository(db, newTestCipher(t))

	created, err := repo.Create(newValidConnection())
	require.NoError(t, err)

	require.NoError(t, repo.Delete(created.ID))

	_, err = repo.Get(created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConnectionRepository_DeleteCascadesToChildRows(t *testing.T) {
	db := newTestDB(t)
	repo := NewConnectionRepository(db, newTestCipher(t))

	created, err := repo.Create(newValidConnection())
	require.NoError(t, err)

	require.NoError(t, db.Create(&SyncLog{ConnectionID: created.ID, StartedAt: Now(), FinishedAt: Now()}).Error)
	item, err := NewRetryQueueRepository(db).Enqueue(&RetryItem{
		ConnectionID:  created.ID,
		OdooOrderID:   1,
		OdooOrderName: "SO001",
		Payload:       "{}",
		NextRetryAt:   Now(),
	})
	require.NoError(t, err)
	require.NoError(t, NewSentOrderRepository(db).MarkSent(&SentOrder{
		ConnectionID:  created.ID,
		OdooOrderID:   1,
		OdooOrderName: "SO001",
		OdooWriteDate: "2024-01-01 00:00:00",
		SentAt:        Now(),
	}))

	require.NoError(t, repo.Delete(created.ID))

	var syncCount, retryCount, sentCount int64
	require.NoError(t, db.Model(&SyncLog{}).Where("connection_id = ?", created.ID).Count(&syncCount).Error)
	require.NoError(t, db.Model(&RetryItem{}).Where("connection_id = ? OR id = ?", created.ID, item.ID).Count(&retryCount).Error)
	require.NoError(t, db.Model(&SentOrder{}).Where("connection_id = ?", created.ID).Count(&sentCount).Error)

	assert.Zero(t, syncCount)
	assert.Zero(t, retryCount)
	assert.Zero(t, sentCount)
}

func TestConnectionRepository_UpdateCircuitStateStampsFailureOnlyOnOpen(t *testing.T) {
	db := newTestDB(t)
	repo := NewConnectionRepository(db, newTestCipher(t))

	created, err := repo.Create(newValidConnection())
	require.NoError(t, err)

	require.NoError(t, repo.UpdateCircuitState(created.ID, CircuitOpen, 5))
	afterOpen, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, CircuitOpen, afterOpen.CircuitState)
	assert.NotEmpty(t, afterOpen.CircuitLastFailureAt)

	require.NoError(t, repo.UpdateCircuitState(created.ID, CircuitHalfOpen, 5))
	afterHalf, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, CircuitHalfOpen, afterHalf.CircuitState)
	assert.Equal(t, afterOpen.CircuitLastFailureAt, afterHalf.CircuitLastFailureAt, "transitioning away from open must not touch the failure timestamp")
}

func TestConnectionRepository_UpdateLastSync(t *testing.T) {
	db := newTestDB(t)
	repo := NewConnectionRepository(db, newTestCipher(t))

	created, err := repo.Create(newValidConnection())
	require.NoError(t, err)

	require.NoError(t, repo.UpdateLastSync(created.ID, "2024-06-01 12:00:00"))

	got, err := repo.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-06-01 12:00:00", got.LastSyncAt)
}
