package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrDuplicateKey is returned by Create when the (fingerprint, college)
// uniqueness constraint rejects an insert. It is the storage-level backstop
// for the service's same-college duplicate check.
var ErrDuplicateKey = errors.New("record violates uniqueness constraint")

// IsNotFoundError reports whether err represents a missing record.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	return strings.Contains(err.Error(), "not found")
}

// IsDuplicateKeyError reports whether err represents a uniqueness violation.
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicateKey) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// pgx surfaces SQLSTATE 23505 for unique_violation
	return strings.Contains(err.Error(), "23505") ||
		strings.Contains(err.Error(), "duplicate key")
}
