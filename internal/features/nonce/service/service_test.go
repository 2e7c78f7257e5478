package service

import (
	"context"
	"encoding/hex"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"goal-auth-bridge/internal/features/nonce/models"
	"goal-auth-bridge/internal/features/nonce/repository"
	redisrepo "goal-auth-bridge/internal/features/nonce/repository/redis"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("github.com/alicebob/miniredis/v2/server.(*Server).servePeer"))
}

var (
	startParam = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	siweNonce  = regexp.MustCompile(`^[A-Za-z0-9]{8,}$`)
)

func TestNewValue(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		v, err := NewValue()
		require.NoError(t, err)
		assert.Regexp(t, startParam, v)
		assert.Regexp(t, siweNonce, v)
		raw, err := hex.DecodeString(v)
		require.NoError(t, err)
		assert.Len(t, raw, valueBytes)
		assert.False(t, seen[v])
		seen[v] = true
	}
}

func TestIssueAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	clock := time.Now().UTC().Truncate(time.Millisecond)
	svc := NewService(redisrepo.NewRepository(client, time.Hour)).WithClock(func() time.Time { return clock })
	ctx := context.Background()

	n, err := svc.Issue(ctx, models.KindTelegramLogin, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, clock.Add(10*time.Minute), n.ExpiresAt)

	got, err := svc.Get(ctx, n.Value)
	require.NoError(t, err)
	assert.False(t, got.Expired(clock.Add(9*time.Minute)))
	assert.True(t, got.Expired(clock.Add(10*time.Minute)))

	require.NoError(t, svc.Confirm(ctx, models.KindTelegramLogin, n.Value, "42", "Ann"))

	clock = clock.Add(11 * time.Minute)
	assert.ErrorIs(t, svc.Use(ctx, models.KindTelegramLogin, n.Value, "42"), repository.ErrExpired)

	_, err = svc.Issue(ctx, "bogus", time.Minute)
	assert.Error(t, err)
}

type countingLedger struct {
	repository.Ledger
	sweeps int32
}

func (c *countingLedger) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	atomic.AddInt32(&c.sweeps, 1)
	return 2, nil
}

func TestJanitorSweepsUntilStopped(t *testing.T) {
	ledger := &countingLedger{}
	j := NewJanitor(ledger, 5*time.Millisecond, time.Hour)
	assert.EqualValues(t, 2, j.Sweep(context.Background()))

	j.Start()
	require.Eventually(t, func() bool { return atomic.LoadInt32(&ledger.sweeps) >= 3 }, time.Second, 5*time.Millisecond)
	j.Stop()
}
