package store

import (
	"errors"
	"strings"

	"clinicbook/internal/database"
)

// Storage-level sentinels surfaced unchanged to callers.
var (
	ErrNotFound     = database.ErrNotFound
	ErrSlotConflict = database.ErrSlotConflict
	ErrPastDate     = database.ErrPastDate
	ErrDateTooFar   = database.ErrDateTooFar

	// ErrCancelled is returned when an operation targets a cancelled
	// appointment that cannot take it (confirm, update).
	ErrCancelled = errors.New("appointment is cancelled")
)

// ValidationError reports required fields that were missing or malformed.
// Recoverable: the caller re-prompts and retries.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// IsValidation checks if err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
