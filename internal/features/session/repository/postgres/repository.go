package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"goal-auth-bridge/internal/features/session/models"
	"goal-auth-bridge/internal/features/session/repository"
)

const userColumns = `id, COALESCE(backend_auth_id, ''), login_id, from_login, name, email, have_premium, created_at, updated_at`

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.UserRepository {
	return &postgresRepository{db: db}
}

// Upsert создает пользователя или привязывает backend_auth_id к существующему
func (r *postgresRepository) Upsert(ctx context.Context, user *models.AppUser) (*models.AppUser, bool, error) {
	id := user.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	query := `
		INSERT INTO app_users (id, backend_auth_id, login_id, from_login, name, email, have_premium)
		VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7)
		ON CONFLICT (from_login, login_id) DO UPDATE SET
			backend_auth_id = COALESCE(app_users.backend_auth_id, EXCLUDED.backend_auth_id),
			updated_at = NOW()
		RETURNING ` + userColumns + `, (xmax = 0) AS inserted
	`

	var (
		out      models.AppUser
		inserted bool
	)
	err := r.db.QueryRowContext(ctx, query,
		id, user.BackendAuthID, user.LoginID, user.FromLogin, user.Name, user.Email, user.HavePremium).
		Scan(&out.ID, &out.BackendAuthID, &out.LoginID, &out.FromLogin, &out.Name, &out.Email,
			&out.HavePremium, &out.CreatedAt, &out.UpdatedAt, &inserted)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert user: %w", err)
	}

	return &out, inserted, nil
}

// GetByBackendAuthID получает пользователя по идентификатору в бэкенде авторизации
func (r *postgresRepository) GetByBackendAuthID(ctx context.Context, backendAuthID string) (*models.AppUser, error) {
	query := `SELECT ` + userColumns + ` FROM app_users WHERE backend_auth_id = $1`

	var out models.AppUser
	err := r.db.QueryRowContext(ctx, query, backendAuthID).Scan(
		&out.ID, &out.BackendAuthID, &out.LoginID, &out.FromLogin, &out.Name, &out.Email,
		&out.HavePremium, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &out, nil
}
