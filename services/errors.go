package services

import (
	"errors"
	"fmt"
)

// Error kinds. Controllers map them to status codes with errors.Is; the
// specific errors below wrap one of them.
var (
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrBusy              = errors.New("operation already in progress")
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthenticated   = errors.New("authentication required")
	ErrNoWin             = errors.New("card does not win the pattern")
)

var (
	ErrAlreadyCalled      = fmt.Errorf("%w: number already called", ErrConflict)
	ErrAllCalled          = fmt.Errorf("%w: every number has been called", ErrConflict)
	ErrDepositNotPending  = fmt.Errorf("%w: deposit is not pending", ErrConflict)
	ErrDuplicatePattern   = fmt.Errorf("%w: an active pattern already has these positions", ErrConflict)
	ErrMalformedCard      = fmt.Errorf("%w: card has unreadable cells", ErrValidation)
	ErrPatternUnavailable = fmt.Errorf("%w: pattern is not available in this event", ErrValidation)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}
