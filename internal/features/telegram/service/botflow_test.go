package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "goal-auth-bridge/internal/common/errors"
	"goal-auth-bridge/internal/domain/claim"
	noncemodels "goal-auth-bridge/internal/features/nonce/models"
	noncerepo "goal-auth-bridge/internal/features/nonce/repository/redis"
	nonceservice "goal-auth-bridge/internal/features/nonce/service"
	sessionservice "goal-auth-bridge/internal/features/session/service"
	"goal-auth-bridge/internal/features/session/sessiontest"
	"goal-auth-bridge/internal/features/telegram/models"
	dedup "goal-auth-bridge/internal/features/telegram/repository/redis"
)

const webhookSecret = "s3cret"

type recordingReplier struct {
	mu      sync.Mutex
	replies []string
}

func (r *recordingReplier) Reply(ctx context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, text)
	return nil
}

func (r *recordingReplier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.replies...)
}

type fixture struct {
	flow    *BotFlow
	nonces  *nonceservice.Service
	replier *recordingReplier
	clock   *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	clock := time.Now()
	nonces := nonceservice.NewService(noncerepo.NewRepository(client, time.Hour)).
		WithClock(func() time.Time { return clock })
	replier := &recordingReplier{}
	flow := NewBotFlow(nonces, dedup.NewUpdateDeduper(client, time.Hour), replier, BotFlowOptions{
		BotUsername:   "goals_bot",
		WebhookSecret: webhookSecret,
		TTL:           600 * time.Second,
	})
	return &fixture{flow: flow, nonces: nonces, replier: replier, clock: &clock}
}

func startUpdate(updateID int, fromID int64, nonce string) *tgbotapi.Update {
	text := "/start " + nonce
	return &tgbotapi.Update{
		UpdateID: updateID,
		Message: &tgbotapi.Message{
			MessageID: updateID,
			From:      &tgbotapi.User{ID: fromID, FirstName: "Ann", LastName: "Lee"},
			Chat:      &tgbotapi.Chat{ID: fromID, Type: "private"},
			Text:      text,
			Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len("/start")}},
		},
	}
}

func TestInitDeepLinks(t *testing.T) {
	f := newFixture(t)
	res, err := f.flow.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tg://resolve?domain=goals_bot&start="+res.Nonce, res.DeepLinkApp)
	assert.Equal(t, "https://t.me/goals_bot?start="+res.Nonce, res.DeepLinkWeb)

	st, err := f.flow.Status(context.Background(), res.Nonce)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, st.Status)
}

// Init, webhook confirmation, ready status, exchange, then a second exchange.
func TestBotFlowEndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bridge := sessionservice.NewBridge(sessiontest.NewBackend(), sessiontest.NewUsers(), sessionservice.Options{
		Secret:      []byte("0123456789abcdef0123456789abcdef"),
		EmailDomain: "users.test",
	})

	res, err := f.flow.Init(ctx)
	require.NoError(t, err)

	require.NoError(t, f.flow.OnWebhook(ctx, webhookSecret, startUpdate(1, 42, res.Nonce)))
	assert.Equal(t, []string{replyConfirmed}, f.replier.all())

	st, err := f.flow.Status(ctx, res.Nonce)
	require.NoError(t, err)
	assert.Equal(t, models.StatusReady, st.Status)
	assert.Equal(t, "42", st.ExternalID)

	c, err := f.flow.Verify(ctx, &models.BotProof{Nonce: res.Nonce})
	require.NoError(t, err)
	assert.Equal(t, claim.ChannelTelegramBot, c.Channel)
	assert.Equal(t, "42", c.ExternalID)
	assert.Equal(t, "Ann Lee", c.DisplayName)

	issued, err := bridge.Issue(ctx, c)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.Tokens.AccessToken)
	assert.NotEmpty(t, issued.Tokens.RefreshToken)

	_, err = f.flow.Verify(ctx, &models.BotProof{Nonce: res.Nonce})
	assert.Equal(t, apperrors.ErrCodeAlreadyUsed, apperrors.CodeOf(err))

	st, err = f.flow.Status(ctx, res.Nonce)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, st.Status)
}

func TestWebhookSecretAndDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.flow.Init(ctx)
	require.NoError(t, err)

	err = f.flow.OnWebhook(ctx, "wrong", startUpdate(1, 42, res.Nonce))
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.CodeOf(err))

	// The same update delivered twice replies once.
	require.NoError(t, f.flow.OnWebhook(ctx, webhookSecret, startUpdate(7, 42, res.Nonce)))
	require.NoError(t, f.flow.OnWebhook(ctx, webhookSecret, startUpdate(7, 42, res.Nonce)))
	assert.Equal(t, []string{replyConfirmed}, f.replier.all())

	// A second /start from another account is a stale link and leaves the binding.
	require.NoError(t, f.flow.OnWebhook(ctx, webhookSecret, startUpdate(8, 99, res.Nonce)))
	assert.Equal(t, []string{replyConfirmed, replyStale}, f.replier.all())

	st, err := f.flow.Status(ctx, res.Nonce)
	require.NoError(t, err)
	assert.Equal(t, "42", st.ExternalID)
}

func TestWebhookIgnoresOtherMessages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	plain := &tgbotapi.Update{UpdateID: 3, Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: 1}, Chat: &tgbotapi.Chat{ID: 1}, Text: "hello",
	}}
	require.NoError(t, f.flow.OnWebhook(ctx, webhookSecret, plain))
	require.NoError(t, f.flow.OnWebhook(ctx, webhookSecret, &tgbotapi.Update{UpdateID: 4}))
	require.NoError(t, f.flow.OnWebhook(ctx, webhookSecret, startUpdate(5, 1, "unknown-nonce")))
	require.NoError(t, f.flow.OnWebhook(ctx, webhookSecret, startUpdate(6, 1, "not/a+nonce")))
	assert.Equal(t, []string{replyStale, replyStale}, f.replier.all())

	st, err := f.flow.Status(ctx, "not/a+nonce")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, st.Status)
}

func TestExpiryOverridesConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.flow.Init(ctx)
	require.NoError(t, err)

	_, err = f.flow.Verify(ctx, &models.BotProof{Nonce: res.Nonce})
	assert.Equal(t, apperrors.ErrCodeNotReady, apperrors.CodeOf(err))

	require.NoError(t, f.flow.OnWebhook(ctx, webhookSecret, startUpdate(1, 42, res.Nonce)))
	*f.clock = f.clock.Add(11 * time.Minute)

	st, err := f.flow.Status(ctx, res.Nonce)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, st.Status)

	_, err = f.flow.Verify(ctx, &models.BotProof{Nonce: res.Nonce})
	assert.Equal(t, apperrors.ErrCodeExpired, apperrors.CodeOf(err))
}

func TestExchangedNonceReportsExpiredAfterTTL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.flow.Init(ctx)
	require.NoError(t, err)
	require.NoError(t, f.flow.OnWebhook(ctx, webhookSecret, startUpdate(1, 42, res.Nonce)))

	_, err = f.flow.Verify(ctx, &models.BotProof{Nonce: res.Nonce})
	require.NoError(t, err)

	*f.clock = f.clock.Add(11 * time.Minute)

	st, err := f.flow.Status(ctx, res.Nonce)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, st.Status)

	_, err = f.flow.Verify(ctx, &models.BotProof{Nonce: res.Nonce})
	assert.Equal(t, apperrors.ErrCodeExpired, apperrors.CodeOf(err))
}

func TestExchangeRejectsForeignNonces(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wallet, err := f.nonces.Issue(ctx, noncemodels.KindWallet, time.Minute)
	require.NoError(t, err)
	_, err = f.flow.Verify(ctx, &models.BotProof{Nonce: wallet.Value})
	assert.Equal(t, apperrors.ErrCodeRevoked, apperrors.CodeOf(err))

	st, err := f.flow.Status(ctx, wallet.Value)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotFound, st.Status)

	_, err = f.flow.Verify(ctx, &models.BotProof{Nonce: "missing"})
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}

func TestConcurrentExchangeSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.flow.Init(ctx)
	require.NoError(t, err)
	require.NoError(t, f.flow.OnWebhook(ctx, webhookSecret, startUpdate(1, 42, res.Nonce)))

	var wg sync.WaitGroup
	var mu sync.Mutex
	codes := map[apperrors.ErrorCode]int{}
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.flow.Verify(ctx, &models.BotProof{Nonce: res.Nonce})
			mu.Lock()
			codes[apperrors.CodeOf(err)]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, codes[""])
	assert.Equal(t, 9, codes[apperrors.ErrCodeAlreadyUsed])
}
