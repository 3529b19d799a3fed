package store

import (
	"fmt"

	"gorm.io/gorm"
)

// SyncLogRepository records one row per poll cycle attempt.
type SyncLogRepository struct {
	db *gorm.DB
}

func NewSyncLogRepository(db *gorm.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Create inserts a sync log row, assigning its id.
func (r *SyncLogRepository) Create(log *SyncLog) (*SyncLog, error) {
	row := *log
	if err := r.db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("store: create sync log: %w", err)
	}
	return &row, nil
}

// ListByConnection returns up to limit rows for connectionID, most recent
// first.
func (r *SyncLogRepository) ListByConnection(connectionID, limit int) ([]SyncLog, error) {
	var rows []SyncLog
	err := r.db.Where("connection_id = ?", connectionID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: list sync logs: %w", err)
	}
	return rows, nil
}

// TrimToLimit deletes all but the most recent limit rows for connectionID,
// keyed by id.
func (r *SyncLogRepository) TrimToLimit(connectionID, limit int) error {
	sub := r.db.Model(&SyncLog{}).
		Select("id").
		Where("connection_id = ?", connectionID).
		Order("id DESC").
		Limit(limit)

	err := r.db.Where("connection_id = ? AND id NOT IN (?)", connectionID, sub).
		Delete(&SyncLog{}).Error
	if err != nil {
		return fmt.Errorf("store: trim sync logs: %w", err)
	}
	return nil
}
