package store

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateConnection checks that required fields are present and the
// poll interval is positive before a Connection reaches the repository.
func ValidateConnection(c *Connection) error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("store: invalid connection: %w", err)
	}
	return nil
}
