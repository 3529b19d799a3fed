package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncLogRepository_CreateAssignsID(t *testing.T) {
	db := newTestDB(t)
	connID := newTestConnection(t, db)
	repo := NewSyncLogRepository(db)

	created, err := repo.Create(&SyncLog{
		ConnectionID: connID,
		StartedAt:    Now(),
		FinishedAt:   Now(),
		OrdersFound:  3,
		OrdersSent:   2,
		OrdersFailed: 1,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
}

func TestSyncLogRepository_ListByConnectionMostRecentFirst(t *testing.T) {
	db := newTestDB(t)
	connID := newTestConnection(t, db)
	repo := NewSyncLogRepository(db)

	for i := 0; i < 3; i++ {
		_, err := repo.Create(&SyncLog{ConnectionID: connID, StartedAt: Now(), OrdersFound: i})
		require.NoError(t, err)
	}

	rows, err := repo.ListByConnection(connID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 2, rows[0].OrdersFound, "most recently created row must come first")
}

func TestSyncLogRepository_TrimToLimitKeepsMostRecentByID(t *testing.T) {
	db := newTestDB(t)
	connID := newTestConnection(t, db)
	repo := NewSyncLogRepository(db)

	for i := 0; i < 100; i++ {
		_, err := repo.Create(&SyncLog{ConnectionID: connID, StartedAt: Now(), OrdersFound: i})
		require.NoError(t, err)
	}

	require.NoError(t, repo.TrimToLimit(connID, 50))

	rows, err := repo.ListByConnection(connID, 200)
	require.NoError(t, err)
	require.Len(t, rows, 50)
	assert.Equal(t, 99, rows[0].OrdersFound)
	assert.Equal(t, 50, rows[len(rows)-1].OrdersFound)
}
