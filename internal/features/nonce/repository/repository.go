package repository

import (
	"context"
	"errors"
	"time"

	"goal-auth-bridge/internal/features/nonce/models"
)

var (
	ErrNotFound         = errors.New("nonce not found")
	ErrAlreadyConfirmed = errors.New("nonce already confirmed")
	ErrAlreadyUsed      = errors.New("nonce already used")
	ErrExpired          = errors.New("nonce expired")
	ErrDuplicate        = errors.New("nonce already exists")
)

// Ledger is the durable nonce store. MarkConfirmed and MarkUsed are
// conditional writes executed by the store itself; callers never
// read-then-write.
type Ledger interface {
	// Create stores a fresh nonce. Returns ErrDuplicate if the value is taken.
	Create(ctx context.Context, n *models.Nonce) error

	// Get returns the nonce or ErrNotFound.
	Get(ctx context.Context, value string) (*models.Nonce, error)

	// MarkConfirmed binds a confirmer. Returns ErrNotFound, ErrExpired,
	// ErrAlreadyUsed or ErrAlreadyConfirmed when the guard fails.
	MarkConfirmed(ctx context.Context, value, confirmerID, confirmerName string, now time.Time) error

	// MarkUsed consumes the nonce. Returns ErrNotFound, ErrAlreadyUsed or
	// ErrExpired when the guard fails.
	MarkUsed(ctx context.Context, value, usedBy string, now time.Time) error

	// DeleteExpired removes nonces that expired before the cutoff.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// ClassifyConfirm explains why a conditional confirm touched no rows.
func ClassifyConfirm(n *models.Nonce, now time.Time) error {
	switch {
	case n == nil:
		return ErrNotFound
	case n.Expired(now):
		return ErrExpired
	case n.Used:
		return ErrAlreadyUsed
	default:
		return ErrAlreadyConfirmed
	}
}

// ClassifyUse explains why a conditional use touched no rows. A consumed
// nonce reports ErrAlreadyUsed even after it expires.
func ClassifyUse(n *models.Nonce, now time.Time) error {
	switch {
	case n == nil:
		return ErrNotFound
	case n.Used:
		return ErrAlreadyUsed
	default:
		return ErrExpired
	}
}
