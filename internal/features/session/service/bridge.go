package service

import (
	"context"
	"errors"
	"time"

	"goal-auth-bridge/internal/common/config"
	apperrors "goal-auth-bridge/internal/common/errors"
	"goal-auth-bridge/internal/common/logger"
	"goal-auth-bridge/internal/common/metrics"
	"goal-auth-bridge/internal/domain/claim"
	"goal-auth-bridge/internal/features/session/models"
	"goal-auth-bridge/internal/features/session/repository"
)

// AuthBackend is the external auth subsystem that owns accounts and issues
// sessions.
type AuthBackend interface {
	CreateUser(ctx context.Context, email, password string, metadata map[string]any) (string, error)
	SignInWithPassword(ctx context.Context, email, password string) (*models.BackendSession, error)
	ResetPassword(ctx context.Context, email, password string) error
	GenerateMagicLink(ctx context.Context, email string) (*models.MagicLink, error)
	VerifyMagicLink(ctx context.Context, hashedToken string) (*models.BackendSession, error)
}

type Options struct {
	Secret       []byte
	EmailDomain  string
	CallTimeout  time.Duration
	WalletMode   string
	ClientRedeem bool
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Secret:       []byte(cfg.Auth.CredentialSecret),
		EmailDomain:  cfg.Auth.EmailDomain,
		CallTimeout:  cfg.Auth.CallTimeout,
		WalletMode:   cfg.Wallet.SessionMode,
		ClientRedeem: cfg.Wallet.ClientRedeem,
	}
}

// Bridge turns verified external claims into backend sessions bound to a
// single application user.
type Bridge struct {
	backend AuthBackend
	users   repository.UserRepository
	opts    Options
}

func NewBridge(backend AuthBackend, users repository.UserRepository, opts Options) *Bridge {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 5 * time.Second
	}
	if opts.WalletMode == "" {
		opts.WalletMode = config.WalletModeMagicLink
	}
	return &Bridge{backend: backend, users: users, opts: opts}
}

// Issue creates or reuses the backend account of the claim and returns its
// session material.
func (b *Bridge) Issue(ctx context.Context, c *claim.ExternalClaim) (*models.IssueResult, error) {
	if err := c.Validate(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeBadRequest, "Invalid claim")
	}

	ns := c.Channel.Namespace()
	email := SyntheticEmail(ns, c.ExternalID, b.opts.EmailDomain)
	password, err := DeriveCredential(b.opts.Secret, ns, c.ExternalID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to derive credential")
	}

	backendID, err := b.createUser(ctx, email, password, c)
	if err != nil {
		return nil, err
	}

	result := &models.IssueResult{Email: email}
	if c.Channel == claim.ChannelWallet && b.opts.WalletMode == config.WalletModeMagicLink {
		link, session, err := b.magicLink(ctx, email)
		if err != nil {
			return nil, err
		}
		result.Link = link
		if session != nil {
			result.Tokens = &session.TokenPair
		}
		backendID = firstNonEmpty(backendID, link.UserID)
	} else {
		session, err := b.signInWithReset(ctx, email, password)
		if err != nil {
			return nil, err
		}
		result.Tokens = &session.TokenPair
		backendID = firstNonEmpty(backendID, session.UserID)
	}

	user, inserted, err := b.users.Upsert(ctx, &models.AppUser{
		BackendAuthID: backendID,
		LoginID:       c.ExternalID,
		FromLogin:     ns,
		Name:          c.DisplayName,
		Email:         email,
		HavePremium:   c.Proof["is_premium"] == "true",
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("upsert application user", err)
	}
	result.User = user

	logger.Info().
		Str("channel", string(c.Channel)).
		Str("user_id", user.ID.String()).
		Bool("new_user", inserted).
		Msg("Session issued")
	return result, nil
}

// CurrentUser returns the application user bound to a backend account.
func (b *Bridge) CurrentUser(ctx context.Context, backendAuthID string) (*models.AppUser, error) {
	u, err := b.users.GetByBackendAuthID(ctx, backendAuthID)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, apperrors.New(apperrors.ErrCodeNotFound, "User not found")
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get application user", err)
	}
	return u, nil
}

func (b *Bridge) createUser(ctx context.Context, email, password string, c *claim.ExternalClaim) (string, error) {
	var id string
	err := b.call(ctx, "create_user", func(ctx context.Context) error {
		var err error
		id, err = b.backend.CreateUser(ctx, email, password, map[string]any{
			"name":       c.DisplayName,
			"channel":    string(c.Channel),
			"login_id":   c.ExternalID,
			"from_login": c.Channel.Namespace(),
		})
		return err
	})
	if errors.Is(err, models.ErrUserExists) {
		return "", nil
	}
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeCreateUserFailed, "Failed to create auth user")
	}
	return id, nil
}

// signInWithReset signs in with the derived credential. If the backend
// rejects it (the secret was rotated), the account password is reset to the
// derived one and sign-in is retried exactly once.
func (b *Bridge) signInWithReset(ctx context.Context, email, password string) (*models.BackendSession, error) {
	session, err := b.signIn(ctx, email, password)
	if err == nil {
		return session, nil
	}
	if !errors.Is(err, models.ErrInvalidCredentials) {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAuthFailed, "Failed to sign in")
	}

	logger.Warn().Str("email", email).Msg("Derived credential rejected, resetting")
	if err := b.call(ctx, "reset_password", func(ctx context.Context) error {
		return b.backend.ResetPassword(ctx, email, password)
	}); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAuthFailed, "Failed to reset credential")
	}

	session, err = b.signIn(ctx, email, password)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeAuthFailed, "Failed to sign in after reset")
	}
	return session, nil
}

func (b *Bridge) signIn(ctx context.Context, email, password string) (*models.BackendSession, error) {
	var session *models.BackendSession
	err := b.call(ctx, "sign_in", func(ctx context.Context) error {
		var err error
		session, err = b.backend.SignInWithPassword(ctx, email, password)
		return err
	})
	return session, err
}

// magicLink mints a one-time token and, unless the client redeems it,
// exchanges it for a session right away.
func (b *Bridge) magicLink(ctx context.Context, email string) (*models.MagicLink, *models.BackendSession, error) {
	var link *models.MagicLink
	if err := b.call(ctx, "generate_link", func(ctx context.Context) error {
		var err error
		link, err = b.backend.GenerateMagicLink(ctx, email)
		return err
	}); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeAuthFailed, "Failed to generate login link")
	}
	if link.Email == "" {
		link.Email = email
	}
	if b.opts.ClientRedeem {
		return link, nil, nil
	}

	var session *models.BackendSession
	if err := b.call(ctx, "verify_link", func(ctx context.Context) error {
		var err error
		session, err = b.backend.VerifyMagicLink(ctx, link.HashedToken)
		return err
	}); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrCodeAuthFailed, "Failed to redeem login link")
	}
	if link.UserID == "" {
		link.UserID = session.UserID
	}
	return link, session, nil
}

// call bounds one backend call by the configured timeout and records it.
func (b *Bridge) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.CallTimeout)
	defer cancel()

	err := fn(ctx)
	if errors.Is(err, models.ErrUserExists) {
		metrics.RecordBackendCall(op, nil)
	} else {
		metrics.RecordBackendCall(op, err)
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
