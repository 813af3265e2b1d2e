package repo

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrDuplicate indicates that a unique constraint rejected an insert.
var ErrDuplicate = errors.New("duplicate")

// IsDuplicate attempts to detect unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, ErrDuplicate) {
		return true
	}
	// SQLite typically: "UNIQUE constraint failed"
	// Postgres typically: "duplicate key value violates unique constraint"
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}

// IsNotFound reports whether err is the repo-level not found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
