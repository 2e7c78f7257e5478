// Package sessiontest provides in-memory doubles of the auth backend and the
// application user store for tests of packages that issue sessions.
package sessiontest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"goal-auth-bridge/internal/features/session/models"
)

// Backend is an in-memory auth backend.
type Backend struct {
	mu        sync.Mutex
	passwords map[string]string
	ids       map[string]string
	links     map[string]string
	calls     map[string]int

	// FailCreate makes CreateUser fail with a transport error.
	FailCreate bool
}

func NewBackend() *Backend {
	return &Backend{
		passwords: map[string]string{},
		ids:       map[string]string{},
		links:     map[string]string{},
		calls:     map[string]int{},
	}
}

// SetPassword overwrites the stored password, simulating a rotated secret.
func (b *Backend) SetPassword(email, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.passwords[email] = password
}

func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *Backend) Accounts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.ids)
}

func (b *Backend) CreateUser(ctx context.Context, email, password string, metadata map[string]any) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["create_user"]++
	if b.FailCreate {
		return "", fmt.Errorf("backend unavailable")
	}
	if _, ok := b.ids[email]; ok {
		return "", models.ErrUserExists
	}
	b.ids[email] = uuid.NewString()
	b.passwords[email] = password
	return b.ids[email], nil
}

func (b *Backend) SignInWithPassword(ctx context.Context, email, password string) (*models.BackendSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["sign_in"]++
	if p, ok := b.passwords[email]; !ok || p != password {
		return nil, models.ErrInvalidCredentials
	}
	return session(b.ids[email]), nil
}

func (b *Backend) ResetPassword(ctx context.Context, email, password string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["reset_password"]++
	if _, ok := b.ids[email]; !ok {
		return fmt.Errorf("no user %s", email)
	}
	b.passwords[email] = password
	return nil
}

func (b *Backend) GenerateMagicLink(ctx context.Context, email string) (*models.MagicLink, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["generate_link"]++
	id, ok := b.ids[email]
	if !ok {
		return nil, fmt.Errorf("no user %s", email)
	}
	hashed := uuid.NewString()
	b.links[hashed] = email
	return &models.MagicLink{UserID: id, Email: email, HashedToken: hashed, EmailOTP: "123456"}, nil
}

func (b *Backend) VerifyMagicLink(ctx context.Context, hashedToken string) (*models.BackendSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["verify_link"]++
	email, ok := b.links[hashedToken]
	if !ok {
		return nil, fmt.Errorf("token has expired or is invalid")
	}
	delete(b.links, hashedToken)
	return session(b.ids[email]), nil
}

func session(id string) *models.BackendSession {
	return &models.BackendSession{
		TokenPair: models.TokenPair{
			AccessToken:  "access-" + id,
			RefreshToken: "refresh-" + id,
			ExpiresIn:    3600,
			TokenType:    "bearer",
		},
		UserID: id,
	}
}

// Users is an in-memory application user store with the same upsert
// semantics as the Postgres repository.
type Users struct {
	mu   sync.Mutex
	rows map[string]*models.AppUser
}

func NewUsers() *Users {
	return &Users{rows: map[string]*models.AppUser{}}
}

func (u *Users) Upsert(ctx context.Context, user *models.AppUser) (*models.AppUser, bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	key := user.FromLogin + "/" + user.LoginID
	if row, ok := u.rows[key]; ok {
		if row.BackendAuthID == "" {
			row.BackendAuthID = user.BackendAuthID
		}
		row.UpdatedAt = time.Now()
		out := *row
		return &out, false, nil
	}

	row := *user
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.CreatedAt = time.Now()
	row.UpdatedAt = row.CreatedAt
	u.rows[key] = &row
	out := row
	return &out, true, nil
}

func (u *Users) GetByBackendAuthID(ctx context.Context, backendAuthID string) (*models.AppUser, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, row := range u.rows {
		if row.BackendAuthID == backendAuthID {
			out := *row
			return &out, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (u *Users) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.rows)
}
