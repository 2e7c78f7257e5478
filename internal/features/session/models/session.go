package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUserExists is returned by the auth backend when the account is
	// already registered. The bridge treats it as success.
	ErrUserExists = errors.New("auth user already exists")
	// ErrInvalidCredentials is returned by the auth backend when a password
	// sign-in is rejected.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("application user not found")
)

// TokenPair is the session material handed to the client.
// @Description Backend session tokens
type TokenPair struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJIUzI1NiJ9..."`
	RefreshToken string `json:"refresh_token" example:"v1.MR5mPf..."`
	ExpiresIn    int    `json:"expires_in" example:"3600"`
	TokenType    string `json:"token_type" example:"bearer"`
}

// BackendSession is a signed-in session together with the backend account id.
type BackendSession struct {
	TokenPair
	UserID string
}

// MagicLink is a one-time redemption token minted by the auth backend.
type MagicLink struct {
	UserID      string
	Email       string
	HashedToken string
	EmailOTP    string
}

// AppUser is the durable application user bound to one external identity.
// @Description Application user
type AppUser struct {
	ID            uuid.UUID `json:"id"`
	BackendAuthID string    `json:"backend_auth_id,omitempty"`
	LoginID       string    `json:"login_id"`
	FromLogin     string    `json:"from_login"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	HavePremium   bool      `json:"have_premium"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IssueResult is what the bridge produced for one claim. Exactly one of
// Tokens and Link is set when the wallet is redeemed client side; both may
// be set for server-side redemption of a magic link.
type IssueResult struct {
	Email  string
	Tokens *TokenPair
	Link   *MagicLink
	User   *AppUser
}

// ExchangeResponse is the session handed out by the Telegram exchanges
// @Description Session tokens and the application user
type ExchangeResponse struct {
	TokenPair
	User *AppUser `json:"user,omitempty"`
}

// NewExchangeResponse flattens an issue result with tokens into a response.
func NewExchangeResponse(res *IssueResult) *ExchangeResponse {
	out := &ExchangeResponse{User: res.User}
	if res.Tokens != nil {
		out.TokenPair = *res.Tokens
	}
	return out
}
