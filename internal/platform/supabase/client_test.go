package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goal-auth-bridge/internal/features/session/models"
)

const serviceKey = "service-role-key"

// fakeGoTrue keeps accounts in memory and speaks the subset of the GoTrue
// API the client uses.
type fakeGoTrue struct {
	mu        sync.Mutex
	passwords map[string]string // email -> password
	ids       map[string]string // email -> id
	tokens    map[string]string // hashed token -> email
}

func newFakeGoTrue() *fakeGoTrue {
	return &fakeGoTrue{
		passwords: map[string]string{},
		ids:       map[string]string{},
		tokens:    map[string]string{},
	}
}

func (f *fakeGoTrue) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("apikey") != serviceKey || r.Header.Get("Authorization") != "Bearer "+serviceKey {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	email, _ := body["email"].(string)

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/admin/users":
		if _, ok := f.ids[email]; ok {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"code":422,"error_code":"email_exists","msg":"A user with this email address has already been registered"}`))
			return
		}
		f.ids[email] = "uid-" + email
		f.passwords[email] = body["password"].(string)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": f.ids[email], "email": email})

	case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/token":
		if r.URL.Query().Get("grant_type") != "password" || f.passwords[email] != body["password"] {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		writeSession(w, f.ids[email])

	case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/admin/generate_link":
		id, ok := f.ids[email]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"msg":"User not found"}`))
			return
		}
		hashed := "hash-" + email
		f.tokens[hashed] = email
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id": id, "email": email, "email_otp": "123456", "hashed_token": hashed,
		})

	case r.Method == http.MethodPost && r.URL.Path == "/auth/v1/verify":
		hashed, _ := body["token_hash"].(string)
		owner, ok := f.tokens[hashed]
		if !ok {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"msg":"Token has expired or is invalid"}`))
			return
		}
		delete(f.tokens, hashed)
		writeSession(w, f.ids[owner])

	case r.Method == http.MethodPut && strings.HasPrefix(r.URL.Path, "/auth/v1/admin/users/"):
		id := strings.TrimPrefix(r.URL.Path, "/auth/v1/admin/users/")
		for e, uid := range f.ids {
			if uid == id {
				f.passwords[e] = body["password"].(string)
				_ = json.NewEncoder(w).Encode(map[string]string{"id": id})
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func writeSession(w http.ResponseWriter, id string) {
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token":  "access-" + id,
		"refresh_token": "refresh-" + id,
		"expires_in":    3600,
		"token_type":    "bearer",
		"user":          map[string]string{"id": id},
	})
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	srv := httptest.NewServer(newFakeGoTrue())
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL + "/", APIKey: serviceKey})
	require.NoError(t, err)
	return c
}

func TestCreateUserAndSignIn(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	id, err := c.CreateUser(ctx, "telegram-42@users.test", "pw-1", map[string]any{"name": "Ann"})
	require.NoError(t, err)
	assert.Equal(t, "uid-telegram-42@users.test", id)

	_, err = c.CreateUser(ctx, "telegram-42@users.test", "pw-2", nil)
	assert.ErrorIs(t, err, models.ErrUserExists)

	s, err := c.SignInWithPassword(ctx, "telegram-42@users.test", "pw-1")
	require.NoError(t, err)
	assert.Equal(t, "access-uid-telegram-42@users.test", s.AccessToken)
	assert.Equal(t, 3600, s.ExpiresIn)
	assert.Equal(t, id, s.UserID)

	_, err = c.SignInWithPassword(ctx, "telegram-42@users.test", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestResetPassword(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.CreateUser(ctx, "telegram-7@users.test", "old", nil)
	require.NoError(t, err)
	require.NoError(t, c.ResetPassword(ctx, "telegram-7@users.test", "new"))

	_, err = c.SignInWithPassword(ctx, "telegram-7@users.test", "new")
	assert.NoError(t, err)

	assert.Error(t, c.ResetPassword(ctx, "nobody@users.test", "x"))
}

func TestMagicLinkRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.CreateUser(ctx, "wallet-0xabc@users.test", "pw", nil)
	require.NoError(t, err)

	link, err := c.GenerateMagicLink(ctx, "wallet-0xabc@users.test")
	require.NoError(t, err)
	assert.Equal(t, "uid-wallet-0xabc@users.test", link.UserID)
	assert.Equal(t, "123456", link.EmailOTP)

	s, err := c.VerifyMagicLink(ctx, link.HashedToken)
	require.NoError(t, err)
	assert.Equal(t, link.UserID, s.UserID)

	_, err = c.VerifyMagicLink(ctx, link.HashedToken)
	assert.Error(t, err)
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.Error(t, err)
	_, err = New(Config{URL: "http://x"})
	assert.Error(t, err)
}
