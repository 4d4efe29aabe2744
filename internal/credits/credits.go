package credits

import (
	"context"
	"errors"
)

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrNoCredits means the guarded decrement found no balance to
	// spend; the balance is left untouched.
	ErrNoCredits = errors.New("no credits remaining")
)

// Ledger tracks the prepaid per-user AI credit balance. Balance is a
// fast-fail read; Deduct is the authoritative, guarded decrement run
// after a successful provider dispatch.
type Ledger interface {
	Balance(ctx context.Context, userID string) (int, error)
	Deduct(ctx context.Context, userID string) error
	Grant(ctx context.Context, userID string, amount int) error
}
