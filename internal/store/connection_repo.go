package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/NotoriosTI/notorios-odoo-poller-orders-MS/internal/cipher"
)

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("store: not found")

// ConnectionRepository persists Connection rows, encrypting/decrypting the
// secret fields at the boundary via the given FieldCipher.
type ConnectionRepository struct {
	db  *gorm.DB
	enc *cipher.FieldCipher
}

func NewConnectionRepository(db *gorm.DB, enc *cipher.FieldCipher) *ConnectionRepository {
	return &ConnectionRepository{db: db, enc: enc}
}

func (r *ConnectionRepository) decrypted(c *Connection) (*Connection, error) {
	out := *c
	plainKey, err := r.enc.Decrypt(c.OdooAPIKey)
	if err != nil {
		return nil, fmt.Errorf("store: decrypt odoo_api_key: %w", err)
	}
	out.OdooAPIKey = plainKey

	if c.WebhookSecret != "" {
		plainSecret, err := r.enc.Decrypt(c.WebhookSecret)
		if err != nil {
			return nil, fmt.Errorf("store: decrypt webhook_secret: %w", err)
		}
		out.WebhookSecret = plainSecret
	}
	return &out, nil
}

func (r *ConnectionRepository) decryptAll(rows []Connection) ([]Connection, error) {
	out := make([]Connection, 0, len(rows))
	for i := range rows {
		dec, err := r.decrypted(&rows[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *dec)
	}
	return out, nil
}

// ListAll returns every connection, sorted by name.
func (r *ConnectionRepository) ListAll() ([]Connection, error) {
	var rows []Connection
	if err := r.db.Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list connections: %w", err)
	}
	return r.decryptAll(rows)
}

// ListEnabled returns only enabled connections, sorted by name.
func (r *ConnectionRepository) ListEnabled() ([]Connection, error) {
	var rows []Connection
	if err := r.db.Where("enabled = ?", true).Order("name").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list enabled connections: %w", err)
	}
	return r.decryptAll(rows)
}

// Get returns the connection with the given id.
func (r *ConnectionRepository) Get(id int) (*Connection, error) {
	var row Connection
	err := r.db.First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get connection: %w", err)
	}
	return r.decrypted(&row)
}

// Create inserts a new connection, encrypting its secret fields.
func (r *ConnectionRepository) Create(c *Connection) (*Connection, error) {
	if err := ValidateConnection(c); err != nil {
		return nil, err
	}

	encKey, err := r.enc.Encrypt(c.OdooAPIKey)
	if err != nil {
		return nil, fmt.Errorf("store: encrypt odoo_api_key: %w", err)
	}
	encSecret, err := r.enc.Encrypt(c.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("store: encrypt webhook_secret: %w", err)
	}

	now := Now()
	row := *c
	row.OdooAPIKey = encKey
	row.WebhookSecret = encSecret
	if row.CircuitState == "" {
		row.CircuitState = CircuitClosed
	}
	row.CreatedAt = now
	row.UpdatedAt = now

	if err := r.db.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("store: create connection: %w", err)
	}
	// gorm replaces a zero-value field that has a column default with that
	// default on insert, so a disabled connection would be stored enabled.
	if !c.Enabled {
		if err := r.db.Model(&Connection{}).Where("id = ?", row.ID).Update("enabled", false).Error; err != nil {
			return nil, fmt.Errorf("store: create connection: %w", err)
		}
	}

	out := *c
	out.ID = row.ID
	out.CreatedAt = now
	out.UpdatedAt = now
	return &out, nil
}

// Update persists every editable field of c (name, endpoint, webhook,
// interval, enabled flag), re-encrypting secrets.
func (r *ConnectionRepository) Update(c *Connection) (*Connection, error) {
	if err := ValidateConnection(c); err != nil {
		return nil, err
	}

	encKey, err := r.enc.Encrypt(c.OdooAPIKey)
	if err != nil {
		return nil, fmt.Errorf("store: encrypt odoo_api_key: %w", err)
	}
	encSecret, err := r.enc.Encrypt(c.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("store: encrypt webhook_secret: %w", err)
	}

	now := Now()
	err = r.db.Model(&Connection{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"name":                  c.Name,
		"odoo_url":              c.OdooURL,
		"odoo_db":               c.OdooDB,
		"odoo_username":         c.OdooUsername,
		"odoo_api_key":          encKey,
		"webhook_url":           c.WebhookURL,
		"webhook_secret":        encSecret,
		"poll_interval_seconds": c.PollIntervalSeconds,
		"enabled":               c.Enabled,
		"updated_at":            now,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("store: update connection: %w", err)
	}

	out := *c
	out.UpdatedAt = now
	return &out, nil
}

// Delete removes the connection and, within the same transaction, its
// sync logs, retry items, and sent orders.
func (r *ConnectionRepository) Delete(id int) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("connection_id = ?", id).Delete(&SyncLog{}).Error; err != nil {
			return err
		}
		if err := tx.Where("connection_id = ?", id).Delete(&RetryItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("connection_id = ?", id).Delete(&SentOrder{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Connection{}, "id = ?", id).Error
	})
	if err != nil {
		return fmt.Errorf("store: delete connection: %w", err)
	}
	return nil
}

// UpdateCircuitState persists the breaker's state and failure count,
// stamping circuit_last_failure_at only when transitioning into "open".
func (r *ConnectionRepository) UpdateCircuitState(id int, state CircuitState, failureCount int) error {
	updates := map[string]interface{}{
		"circuit_state":         state,
		"circuit_failure_count": failureCount,
		"updated_at":            Now(),
	}
	if state == CircuitOpen {
		updates["circuit_last_failure_at"] = Now()
	}
	if err := r.db.Model(&Connection{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("store: update circuit state: %w", err)
	}
	return nil
}

// UpdateLastSync advances the connection's polling cursor.
func (r *ConnectionRepository) UpdateLastSync(id int, syncAt string) error {
	err := r.db.Model(&Connection{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_sync_at": syncAt,
		"updated_at":   Now(),
	}).Error
	if err != nil {
		return fmt.Errorf("store: update last_sync_at: %w", err)
	}
	return nil
}
