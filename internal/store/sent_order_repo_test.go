package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentOrderRepository_MarkSentIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	connID := newTestConnection(t, db)
	repo := NewSentOrderRepository(db)

	order := &SentOrder{ConnectionID: connID, OdooOrderID: 1, OdooOrderName: "SO1", OdooWriteDate: "2024-01-01 00:00:00"}
	require.NoError(t, repo.MarkSent(order))
	require.NoError(t, repo.MarkSent(order), "repeated mark_sent on the same natural key must not error")

	rows, err := repo.ListByConnection(connID, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "duplicate natural key must not produce a second row")
}

func TestSentOrderRepository_IsSent(t *testing.T) {
	db := newTestDB(t)
	connID := newTestConnection(t, db)
	repo := NewSentOrderRepository(db)

	sent, err := repo.IsSent(connID, 1, "2024-01-01 00:00:00")
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, repo.MarkSent(&SentOrder{ConnectionID: connID, OdooOrderID: 1, OdooWriteDate: "2024-01-01 00:00:00"}))

	sent, err = repo.IsSent(connID, 1, "2024-01-01 00:00:00")
	require.NoError(t, err)
	assert.True(t, sent)

	sent, err = repo.IsSent(connID, 1, "2024-06-01 00:00:00")
	require.NoError(t, err)
	assert.False(t, sent, "a different write_date is a different delivery")
}

func TestSentOrderRepository_GetSentIDs(t *testing.T) {
	db := newTestDB(t)
	connID := newTestConnection(t, db)
	repo := NewSentOrderRepository(db)

	require.NoError(t, repo.MarkSent(&SentOrder{ConnectionID: connID, OdooOrderID: 1, OdooWriteDate: "2024-01-01 00:00:00"}))
	require.NoError(t, repo.MarkSent(&SentOrder{ConnectionID: connID, OdooOrderID: 2, OdooWriteDate: "2024-02-01 00:00:00"}))

	ids, err := repo.GetSentIDs(connID)
	require.NoError(t, err)
	assert.Contains(t, ids, SentKey{OrderID: 1, WriteDate: "2024-01-01 00:00:00"})
	assert.Contains(t, ids, SentKey{OrderID: 2, WriteDate: "2024-02-01 00:00:00"})
	assert.Len(t, ids, 2)
}

func TestSentOrderRepository_TrimToLimitKeepsMostRecent(t *testing.T) {
	db := newTestDB(t)
	connID := newTestConnection(t, db)
	repo := NewSentOrderRepository(db)

	timestamps := []string{
		"2024-01-01 00:00:00",
		"2024-01-02 00:00:00",
		"2024-01-03 00:00:00",
		"2024-01-04 00:00:00",
	}
	for i, ts := range timestamps {
		require.NoError(t, repo.MarkSent(&SentOrder{
			ConnectionID: connID, OdooOrderID: i + 1, OdooWriteDate: ts, SentAt: ts,
		}))
	}

	require.NoError(t, repo.TrimToLimit(connID, 2))

	rows, err := repo.ListByConnection(connID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-01-04 00:00:00", rows[0].SentAt)
	assert.Equal(t, "2024-01-03 00:00:00", rows[1].SentAt)
}
