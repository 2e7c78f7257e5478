package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"goal-auth-bridge/internal/features/nonce/models"
	"goal-auth-bridge/internal/features/nonce/repository"
)

const uniqueViolation = "23505"

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) repository.Ledger {
	return &postgresRepository{db: db}
}

// Create сохраняет новый nonce
func (r *postgresRepository) Create(ctx context.Context, n *models.Nonce) error {
	query := `
		INSERT INTO auth_nonces (value, kind, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, n.Value, string(n.Kind), n.CreatedAt, n.ExpiresAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create nonce: %w", err)
	}

	return nil
}

// Get получает nonce по значению
func (r *postgresRepository) Get(ctx context.Context, value string) (*models.Nonce, error) {
	query := `
		SELECT value, kind, created_at, expires_at, confirmer_id, confirmer_name,
		       confirmed_at, used, used_by, used_at
		FROM auth_nonces
		WHERE value = $1
	`

	var (
		n                          models.Nonce
		kind                       string
		confirmerID, confirmerName sql.NullString
		usedBy                     sql.NullString
		confirmedAt, usedAt        sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, value).Scan(
		&n.Value, &kind, &n.CreatedAt, &n.ExpiresAt, &confirmerID, &confirmerName,
		&confirmedAt, &n.Used, &usedBy, &usedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get nonce: %w", err)
	}

	n.Kind = models.Kind(kind)
	n.ConfirmerID = confirmerID.String
	n.ConfirmerName = confirmerName.String
	n.UsedBy = usedBy.String
	if confirmedAt.Valid {
		t := confirmedAt.Time
		n.ConfirmedAt = &t
	}
	if usedAt.Valid {
		t := usedAt.Time
		n.UsedAt = &t
	}

	return &n, nil
}

// MarkConfirmed привязывает подтвердившего пользователя одним условным UPDATE
func (r *postgresRepository) MarkConfirmed(ctx context.Context, value, confirmerID, confirmerName string, now time.Time) error {
	query := `
		UPDATE auth_nonces
		SET confirmer_id = $2, confirmer_name = $3, confirmed_at = $4
		WHERE value = $1 AND confirmer_id IS NULL AND used = false AND expires_at > $4
	`

	result, err := r.db.ExecContext(ctx, query, value, confirmerID, confirmerName, now)
	if err != nil {
		return fmt.Errorf("failed to confirm nonce: %w", err)
	}

	return r.classify(ctx, result, value, now, repository.ClassifyConfirm)
}

// MarkUsed помечает nonce использованным одним условным UPDATE
func (r *postgresRepository) MarkUsed(ctx context.Context, value, usedBy string, now time.Time) error {
	query := `
		UPDATE auth_nonces
		SET used = true, used_by = $2, used_at = $3
		WHERE value = $1 AND used = false AND expires_at > $3
	`

	result, err := r.db.ExecContext(ctx, query, value, usedBy, now)
	if err != nil {
		return fmt.Errorf("failed to use nonce: %w", err)
	}

	return r.classify(ctx, result, value, now, repository.ClassifyUse)
}

// DeleteExpired удаляет просроченные nonce
func (r *postgresRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM auth_nonces WHERE expires_at < $1", before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired nonces: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func (r *postgresRepository) classify(ctx context.Context, result sql.Result, value string, now time.Time,
	why func(*models.Nonce, time.Time) error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	n, err := r.Get(ctx, value)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.ErrNotFound
	}
	if err != nil {
		return err
	}
	return why(n, now)
}
