package store

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SentOrderRepository is the idempotency ledger: a bounded ring of the
// most recently delivered (connection_id, odoo_order_id, odoo_write_date)
// triples per connection.
type SentOrderRepository struct {
	db *gorm.DB
}

func NewSentOrderRepository(db *gorm.DB) *SentOrderRepository {
	return &SentOrderRepository{db: db}
}

// MarkSent inserts order, silently doing nothing if its natural key
// already exists.
func (r *SentOrderRepository) MarkSent(order *SentOrder) error {
	row := *order
	if row.SentAt == "" {
		row.SentAt = Now()
	}

	err := r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("store: mark sent: %w", err)
	}
	return nil
}

// IsSent reports whether (connectionID, orderID, writeDate) has already
// been delivered.
func (r *SentOrderRepository) IsSent(connectionID, orderID int, writeDate string) (bool, error) {
	var count int64
	err := r.db.Model(&SentOrder{}).
		Where("connection_id = ? AND odoo_order_id = ? AND odoo_write_date = ?", connectionID, orderID, writeDate).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("store: is sent: %w", err)
	}
	return count > 0, nil
}

// SentKey is the natural key of a delivered order revision.
type SentKey struct {
	OrderID   int
	WriteDate string
}

// GetSentIDs returns every (order_id, write_date) pair recorded for
// connectionID, for the poll cycle's idempotency filter.
func (r *SentOrderRepository) GetSentIDs(connectionID int) (map[SentKey]struct{}, error) {
	var rows []SentOrder
	err := r.db.Select("odoo_order_id", "odoo_write_date").
		Where("connection_id = ?", connectionID).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: get sent ids: %w", err)
	}

	out := make(map[SentKey]struct{}, len(rows))
	for _, row := range rows {
		out[SentKey{OrderID: row.OdooOrderID, WriteDate: row.OdooWriteDate}] = struct{}{}
	}
	return out, nil
}

// ListByConnection returns up to limit rows for connectionID, most
// recently sent first.
func (r *SentOrderRepository) ListByConnection(connectionID, limit int) ([]SentOrder, error) {
	var rows []SentOrder
	err := r.db.Where("connection_id = ?", connectionID).
		Order("sent_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: list sent orders: %w", err)
	}
	return rows, nil
}

// TrimToLimit keeps only the limit most recent (by sent_at) rows for
// connectionID.
func (r *SentOrderRepository) TrimToLimit(connectionID, limit int) error {
	sub := r.db.Model(&SentOrder{}).
		Select("id").
		Where("connection_id = ?", connectionID).
		Order("sent_at DESC").
		Limit(limit)

	err := r.db.Where("connection_id = ? AND id NOT IN (?)", connectionID, sub).
		Delete(&SentOrder{}).Error
	if err != nil {
		return fmt.Errorf("store: trim sent orders: %w", err)
	}
	return nil
}
