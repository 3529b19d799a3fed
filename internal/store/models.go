// Package store persists connections, sync logs, the retry queue, and the
// sent-order idempotency ledger, and applies the FieldCipher to secret
// columns at the repository boundary.
package store

// CircuitState mirrors the three states the breaker can persist.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// RetryStatus is the lifecycle state of a RetryItem.
type RetryStatus string

const (
	RetryPending   RetryStatus = "pending"
	RetrySent      RetryStatus = "sent"
	RetryDiscarded RetryStatus = "discarded"
)

// Connection is a tenant binding: ERP credentials, webhook endpoint, and
// polling policy. Timestamps are kept as strings in "2006-01-02 15:04:05"
// format (UTC) so they compare correctly both in Go and in SQL text order,
// matching the upstream ERP's own write_date representation.
type Connection struct {
	ID                   int          `gorm:"primaryKey;autoIncrement"`
	Name                 string       `validate:"required"`
	OdooURL              string       `validate:"required,url"`
	OdooDB               string       `validate:"required"`
	OdooUsername         string
	OdooAPIKey           string // ciphertext at rest, plaintext in memory
	WebhookURL           string
	WebhookSecret        string // ciphertext at rest, plaintext in memory
	PollIntervalSeconds  int          `gorm:"default:60" validate:"min=1"`
	Enabled              bool         `gorm:"default:true"`
	CircuitState         CircuitState `gorm:"default:closed"`
	CircuitFailureCount  int
	CircuitLastFailureAt string
	LastSyncAt           string
	CreatedAt            string
	UpdatedAt            string
}

func (Connection) TableName() string { return "connections" }

// SyncLog is one append-only row per poll cycle attempt.
type SyncLog struct {
	ID            int `gorm:"primaryKey;autoIncrement"`
	ConnectionID  int `gorm:"index"`
	StartedAt     string
	FinishedAt    string
	OrdersFound   int
	OrdersSent    int
	OrdersFailed  int
	OrdersSkipped int
	ErrorMessage  string
}

func (SyncLog) TableName() string { return "sync_logs" }

// RetryItem is one pending or terminal redelivery attempt with its frozen
// payload.
type RetryItem struct {
	ID            int `gorm:"primaryKey;autoIncrement"`
	ConnectionID  int `gorm:"index"`
	OdooOrderID   int
	OdooOrderName string
	Payload       string      // JSON, frozen at enqueue time
	Status        RetryStatus `gorm:"index;default:pending"`
	Attempts      int
	MaxAttempts   int `gorm:"default:5"`
	NextRetryAt   string
	LastError     string
	CreatedAt     string
	UpdatedAt     string
}

func (RetryItem) TableName() string { return "retry_queue" }

// SentOrder is the bounded idempotency ledger keyed on
// (connection_id, odoo_order_id, odoo_write_date).
type SentOrder struct {
	ID            int `gorm:"primaryKey;autoIncrement"`
	ConnectionID  int `gorm:"index"`
	OdooOrderID   int
	OdooOrderName string
	OdooWriteDate string
	SentAt        string
}

func (SentOrder) TableName() string { return "sent_orders" }
