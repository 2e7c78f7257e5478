package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goal-auth-bridge/internal/common/config"
	apperrors "goal-auth-bridge/internal/common/errors"
	"goal-auth-bridge/internal/domain/claim"
	"goal-auth-bridge/internal/features/session/sessiontest"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newBridge(opts Options) (*Bridge, *sessiontest.Backend, *sessiontest.Users) {
	backend := sessiontest.NewBackend()
	users := sessiontest.NewUsers()
	if opts.Secret == nil {
		opts.Secret = testSecret
	}
	if opts.EmailDomain == "" {
		opts.EmailDomain = "users.test"
	}
	return NewBridge(backend, users, opts), backend, users
}

func TestDeriveCredentialIsDeterministic(t *testing.T) {
	a, err := DeriveCredential(testSecret, "telegram", "42")
	require.NoError(t, err)
	b, err := DeriveCredential(testSecret, "telegram", "42")
	require.NoError(t, err)
	c, err := DeriveCredential(testSecret, "wallet", "42")
	require.NoError(t, err)
	d, err := DeriveCredential([]byte("another-secret-another-secret-00"), "telegram", "42")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
	assert.Len(t, a, 43)
}

func TestSyntheticEmail(t *testing.T) {
	assert.Equal(t, "wallet-0xabcdef@users.test", SyntheticEmail("wallet", "0xAbCdEf", "users.test"))
	assert.Equal(t, "telegram-42@users.test", SyntheticEmail("telegram", "42", "users.test"))
}

func TestIssueIsIdempotentPerIdentity(t *testing.T) {
	bridge, backend, users := newBridge(Options{})
	ctx := context.Background()

	widget := &claim.ExternalClaim{Channel: claim.ChannelTelegramWidget, ExternalID: "42", DisplayName: "Ann"}
	first, err := bridge.Issue(ctx, widget)
	require.NoError(t, err)
	require.NotNil(t, first.Tokens)
	assert.Equal(t, "telegram-42@users.test", first.Email)
	assert.Equal(t, "Ann", first.User.Name)

	// The bot flow lands on the same user, and a new display name is ignored.
	bot := &claim.ExternalClaim{Channel: claim.ChannelTelegramBot, ExternalID: "42", DisplayName: "Renamed"}
	second, err := bridge.Issue(ctx, bot)
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "Ann", second.User.Name)
	assert.Equal(t, first.User.BackendAuthID, second.User.BackendAuthID)
	assert.NotEmpty(t, second.User.BackendAuthID)
	assert.Equal(t, 1, users.Len())
	assert.Equal(t, 1, backend.Accounts())
	assert.Equal(t, 0, backend.Calls("reset_password"))
}

func TestIssueConcurrentSameIdentity(t *testing.T) {
	bridge, backend, users := newBridge(Options{})
	c := &claim.ExternalClaim{Channel: claim.ChannelTelegramBot, ExternalID: "7"}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := bridge.Issue(context.Background(), c)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, users.Len())
	assert.Equal(t, 1, backend.Accounts())
}

func TestIssueResetsRotatedCredentialOnce(t *testing.T) {
	bridge, backend, _ := newBridge(Options{})
	ctx := context.Background()
	c := &claim.ExternalClaim{Channel: claim.ChannelTelegramWidget, ExternalID: "42"}

	_, err := bridge.Issue(ctx, c)
	require.NoError(t, err)

	backend.SetPassword("telegram-42@users.test", "derived-with-old-secret")
	res, err := bridge.Issue(ctx, c)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.Equal(t, 1, backend.Calls("reset_password"))
	assert.Equal(t, 3, backend.Calls("sign_in"))
}

func TestIssueWalletMagicLink(t *testing.T) {
	c := &claim.ExternalClaim{Channel: claim.ChannelWallet, ExternalID: "0xAbC0000000000000000000000000000000000001"}

	t.Run("client redeems", func(t *testing.T) {
		bridge, backend, _ := newBridge(Options{WalletMode: config.WalletModeMagicLink, ClientRedeem: true})
		res, err := bridge.Issue(context.Background(), c)
		require.NoError(t, err)
		require.NotNil(t, res.Link)
		assert.Nil(t, res.Tokens)
		assert.Equal(t, "123456", res.Link.EmailOTP)
		assert.True(t, strings.HasPrefix(res.Email, "wallet-0xabc"))
		assert.Equal(t, res.Link.UserID, res.User.BackendAuthID)
		assert.Equal(t, 0, backend.Calls("sign_in"))
	})

	t.Run("server redeems", func(t *testing.T) {
		bridge, backend, _ := newBridge(Options{WalletMode: config.WalletModeMagicLink})
		res, err := bridge.Issue(context.Background(), c)
		require.NoError(t, err)
		require.NotNil(t, res.Tokens)
		assert.Equal(t, 1, backend.Calls("verify_link"))
	})

	t.Run("password mode", func(t *testing.T) {
		bridge, backend, _ := newBridge(Options{WalletMode: config.WalletModePassword})
		res, err := bridge.Issue(context.Background(), c)
		require.NoError(t, err)
		assert.Nil(t, res.Link)
		require.NotNil(t, res.Tokens)
		assert.Equal(t, 0, backend.Calls("generate_link"))
	})
}

func TestIssueErrors(t *testing.T) {
	bridge, backend, _ := newBridge(Options{CallTimeout: time.Second})
	backend.FailCreate = true

	_, err := bridge.Issue(context.Background(), &claim.ExternalClaim{Channel: claim.ChannelTelegramBot, ExternalID: "1"})
	assert.Equal(t, apperrors.ErrCodeCreateUserFailed, apperrors.CodeOf(err))

	_, err = bridge.Issue(context.Background(), &claim.ExternalClaim{Channel: claim.ChannelTelegramBot})
	assert.Equal(t, apperrors.ErrCodeBadRequest, apperrors.CodeOf(err))
}

func TestCurrentUser(t *testing.T) {
	bridge, _, _ := newBridge(Options{})
	res, err := bridge.Issue(context.Background(), &claim.ExternalClaim{Channel: claim.ChannelTelegramWebApp, ExternalID: "9"})
	require.NoError(t, err)

	u, err := bridge.CurrentUser(context.Background(), res.User.BackendAuthID)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, u.ID)

	_, err = bridge.CurrentUser(context.Background(), "unknown")
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}
