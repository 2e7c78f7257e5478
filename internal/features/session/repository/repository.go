package repository

import (
	"context"

	"goal-auth-bridge/internal/features/session/models"
)

type UserRepository interface {
	// Upsert inserts the user keyed by (FromLogin, LoginID) or, when a row
	// already exists, attaches BackendAuthID only if the row has none. Name
	// and email of an existing row are never changed. Reports whether a row
	// was inserted.
	Upsert(ctx context.Context, user *models.AppUser) (*models.AppUser, bool, error)

	// GetByBackendAuthID returns models.ErrUserNotFound if no row matches.
	GetByBackendAuthID(ctx context.Context, backendAuthID string) (*models.AppUser, error)
}
