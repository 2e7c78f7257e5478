// Package supabase is a minimal client for the Supabase GoTrue admin and
// token endpoints used to bridge external identities into sessions.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"goal-auth-bridge/internal/features/session/models"
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("APIKey is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *user  `json:"user"`
}

func (t *tokenResponse) session() *models.BackendSession {
	s := &models.BackendSession{TokenPair: models.TokenPair{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
		TokenType:    t.TokenType,
	}}
	if t.User != nil {
		s.UserID = t.User.ID
	}
	return s
}

// CreateUser registers a confirmed account. Returns models.ErrUserExists if
// the email is taken.
func (c *Client) CreateUser(ctx context.Context, email, password string, metadata map[string]any) (string, error) {
	resp, err := c.post(ctx, "/auth/v1/admin/users", map[string]any{
		"email":         email,
		"password":      password,
		"email_confirm": true,
		"user_metadata": metadata,
	})
	if err != nil {
		return "", err
	}
	if resp.alreadyExists() {
		return "", models.ErrUserExists
	}
	if err := resp.Error(); err != nil {
		return "", err
	}

	var u user
	if err := resp.JSON(&u); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return u.ID, nil
}

// SignInWithPassword returns models.ErrInvalidCredentials if the password
// does not match.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.BackendSession, error) {
	resp, err := c.post(ctx, "/auth/v1/token?grant_type=password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusBadRequest && resp.errorCode() == "invalid_credentials" {
		return nil, models.ErrInvalidCredentials
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var t tokenResponse
	if err := resp.JSON(&t); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return t.session(), nil
}

// GenerateMagicLink mints a one-time login token for an existing account.
func (c *Client) GenerateMagicLink(ctx context.Context, email string) (*models.MagicLink, error) {
	resp, err := c.post(ctx, "/auth/v1/admin/generate_link", map[string]string{
		"type":  "magiclink",
		"email": email,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var link struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		EmailOTP    string `json:"email_otp"`
		HashedToken string `json:"hashed_token"`
		Properties  *struct {
			EmailOTP    string `json:"email_otp"`
			HashedToken string `json:"hashed_token"`
		} `json:"properties"`
	}
	if err := resp.JSON(&link); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	// Older GoTrue versions nest the token fields under "properties".
	if link.Properties != nil && link.HashedToken == "" {
		link.HashedToken = link.Properties.HashedToken
		link.EmailOTP = link.Properties.EmailOTP
	}
	if link.HashedToken == "" {
		return nil, fmt.Errorf("supabase error: generate_link returned no token")
	}

	return &models.MagicLink{
		UserID:      link.ID,
		Email:       link.Email,
		HashedToken: link.HashedToken,
		EmailOTP:    link.EmailOTP,
	}, nil
}

// VerifyMagicLink redeems a hashed magic-link token for a session.
func (c *Client) VerifyMagicLink(ctx context.Context, hashedToken string) (*models.BackendSession, error) {
	resp, err := c.post(ctx, "/auth/v1/verify", map[string]string{
		"type":       "magiclink",
		"token_hash": hashedToken,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Error(); err != nil {
		return nil, err
	}

	var t tokenResponse
	if err := resp.JSON(&t); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return t.session(), nil
}

// ResetPassword sets a new password on the account registered for email.
// GoTrue has no admin lookup by email, so the account id is taken from a
// freshly generated magic link.
func (c *Client) ResetPassword(ctx context.Context, email, password string) error {
	link, err := c.GenerateMagicLink(ctx, email)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}
	if link.UserID == "" {
		return fmt.Errorf("supabase error: no user id for %s", email)
	}

	resp, err := c.send(ctx, http.MethodPut, "/auth/v1/admin/users/"+url.PathEscape(link.UserID), map[string]string{
		"password": password,
	})
	if err != nil {
		return err
	}
	return resp.Error()
}

// Response is a raw API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

func (r *Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

type errorBody struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
}

func (r *Response) decodeError() errorBody {
	var e errorBody
	_ = json.Unmarshal(r.Body, &e)
	return e
}

// errorCode normalises the error identifiers GoTrue versions use.
func (r *Response) errorCode() string {
	e := r.decodeError()
	switch {
	case e.ErrorCode != "":
		return e.ErrorCode
	case e.Error == "invalid_grant":
		return "invalid_credentials"
	default:
		return e.Error
	}
}

func (r *Response) alreadyExists() bool {
	if r.StatusCode != http.StatusUnprocessableEntity && r.StatusCode != http.StatusConflict {
		return false
	}
	e := r.decodeError()
	if e.ErrorCode == "email_exists" || e.ErrorCode == "user_already_exists" {
		return true
	}
	text := strings.ToLower(e.Msg + " " + e.Message)
	return strings.Contains(text, "already been registered") || strings.Contains(text, "already registered")
}

// Error returns an error if the response indicates failure.
func (r *Response) Error() error {
	if r.StatusCode < 400 {
		return nil
	}
	e := r.decodeError()
	for _, m := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
		if m != "" {
			return fmt.Errorf("supabase error: status %d: %s", r.StatusCode, m)
		}
	}
	return fmt.Errorf("supabase error: status %d", r.StatusCode)
}

func (c *Client) post(ctx context.Context, path string, body any) (*Response, error) {
	return c.send(ctx, http.MethodPost, path, body)
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	return c.do(req)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       body,
		Headers:    resp.Header,
	}, nil
}
