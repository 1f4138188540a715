// Package id provides UUIDv7 generation for growers, units, ledger rows and requests.
// UUIDv7 is time-ordered, so the id doubles as a creation-order tie-breaker.
package id

import (
	"github.com/google/uuid"

	"growermarket/internal/core/apperror"
)

// ID is a type alias for UUID, used across all entities.
type ID = uuid.UUID

// New generates a new UUIDv7 (time-ordered UUID).
func New() ID {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// ParseField parses a required identifier, reporting a validation error that
// names the offending field.
func ParseField(field, s string) (ID, error) {
	if s == "" {
		return uuid.Nil, apperror.NewValidation(field+" is required").WithDetail("field", field)
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperror.NewValidation("invalid "+field+" format").
			WithDetail("field", field).
			WithDetail("value", s)
	}
	return parsed, nil
}

// MustParse converts string to ID, panics on error.
// Use only for constants and tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(id ID) bool {
	return id == uuid.Nil
}

// Compare orders two ids byte-wise, which for UUIDv7 is creation order.
func Compare(a, b ID) int {
	for i := range a {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
