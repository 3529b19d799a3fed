package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to the sqlite database at path, enabling WAL mode and
// foreign-key enforcement, and caps the pool to a single connection —
// sqlite has one writer regardless, and a larger pool under WAL just
// invites SQLITE_BUSY on concurrent writers.
func Open(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create db directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if err := db.Exec("PRAGMA foreign_keys=ON").Error; err != nil {
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}

	return db, nil
}

// Migrate creates every table and index the poller needs, including the
// partial index gorm's struct tags cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Connection{}, &SyncLog{}, &RetryItem{}, &SentOrder{}); err != nil {
		return fmt.Errorf("store: automigrate: %w", err)
	}

	statements := []string{
		`CREATE INDEX IF NOT EXISTS idx_sync_logs_connection ON sync_logs(connection_id)`,
		`CREATE INDEX IF NOT EXISTS idx_retry_queue_connection_status ON retry_queue(connection_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_retry_queue_next_retry ON retry_queue(next_retry_at) WHERE status = 'pending'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sent_orders_unique ON sent_orders(connection_id, odoo_order_id, odoo_write_date)`,
		`CREATE INDEX IF NOT EXISTS idx_sent_orders_connection ON sent_orders(connection_id)`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("store: create index: %w", err)
		}
	}

	return nil
}

// Now returns the current UTC time formatted the way every timestamp
// column in this schema is stored, so string comparisons in SQL
// (next_retry_at <= ?) and in Go agree.
func Now() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}
