package messaging

import (
	"errors"
	"fmt"
)

// Error taxonomy. Callers match with errors.Is.
var (
	// ErrNotFound covers a missing message, recipient or thread root, and a
	// viewer with no access to a thread.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is an ownership violation.
	ErrForbidden = errors.New("forbidden")
	// ErrRecipientBlocked is returned on send when the recipient has blocked
	// the sender. It also matches ErrForbidden.
	ErrRecipientBlocked = fmt.Errorf("%w: recipient has blocked sender", ErrForbidden)
	// ErrValidation is an input constraint violation caught before the store.
	ErrValidation = errors.New("validation failed")
	// ErrReactionConflict means a heart toggle lost its race twice in a row.
	ErrReactionConflict = errors.New("reaction conflict")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("messaging: %w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
