package store

import (
	"fmt"

	"gorm.io/gorm"
)

// RetryQueueRepository persists durable redelivery attempts.
type RetryQueueRepository struct {
	db *gorm.DB
}

func NewRetryQueueRepository(db *gorm.DB) *RetryQueueRepository {
	return &RetryQueueRepository{db: db}
}

// Enqueue inserts a new retry item.
func (r *RetryQueueRepository) Enqueue(item *RetryItem) (*RetryItem, error) {
	now := Now()
	row := *item
	if row.Status == "" {
		row.Status = RetryPending
	}
	if row.MaxAttempts == 0 {
		row.MaxAttempts = 5
	}
	row.CreatedAt = now
	row.UpdatedAt = now

	if err := r.db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("store: enqueue retry item: %w", err)
	}
	return &row, nil
}

// GetPending returns pending rows for connectionID with next_retry_at <=
// now, ordered by next_retry_at ascending.
func (r *RetryQueueRepository) GetPending(connectionID int, now string) ([]RetryItem, error) {
	var rows []RetryItem
	err := r.db.Where("connection_id = ? AND status = ? AND next_retry_at <= ?", connectionID, RetryPending, now).
		Order("next_retry_at").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: get pending retries: %w", err)
	}
	return rows, nil
}

// ListByConnection returns up to limit rows for connectionID, most recent
// first.
func (r *RetryQueueRepository) ListByConnection(connectionID, limit int) ([]RetryItem, error) {
	var rows []RetryItem
	err := r.db.Where("connection_id = ?", connectionID).
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: list retry items: %w", err)
	}
	return rows, nil
}

// UpdateStatusOpts carries the optional fields UpdateStatus may set;
// zero-value fields leave the corresponding column unchanged (the same
// COALESCE-style contract as the original repository).
type UpdateStatusOpts struct {
	Attempts    *int
	NextRetryAt *string
	LastError   *string
}

// UpdateStatus sets status and any optional fields provided in opts,
// leaving the rest of the row untouched.
func (r *RetryQueueRepository) UpdateStatus(id int, status RetryStatus, opts UpdateStatusOpts) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": Now(),
	}
	if opts.Attempts != nil {
		updates["attempts"] = *opts.Attempts
	}
	if opts.NextRetryAt != nil {
		updates["next_retry_at"] = *opts.NextRetryAt
	}
	if opts.LastError != nil {
		updates["last_error"] = *opts.LastError
	}

	if err := r.db.Model(&RetryItem{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("store: update retry item status: %w", err)
	}
	return nil
}

// CleanupFinished deletes every terminal (sent or discarded) row for
// connectionID.
func (r *RetryQueueRepository) CleanupFinished(connectionID int) error {
	err := r.db.Where("connection_id = ? AND status IN ?", connectionID, []RetryStatus{RetrySent, RetryDiscarded}).
		Delete(&RetryItem{}).Error
	if err != nil {
		return fmt.Errorf("store: cleanup finished retries: %w", err)
	}
	return nil
}

// GetSummary returns a count of retry items per status for connectionID.
func (r *RetryQueueRepository) GetSummary(connectionID int) (map[RetryStatus]int, error) {
	var rows []struct {
		Status RetryStatus
		Count  int
	}
	err := r.db.Model(&RetryItem{}).
		Select("status, count(*) as count").
		Where("connection_id = ?", connectionID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: get retry summary: %w", err)
	}

	summary := make(map[RetryStatus]int, len(rows))
	for _, row := range rows {
		summary[row.Status] = row.Count
	}
	return summary, nil
}
