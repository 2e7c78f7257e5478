package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_BOT_USERNAME", "goals_bot")
	t.Setenv("TELEGRAM_WEBHOOK_SECRET", "hook")
	t.Setenv("SUPABASE_URL", "http://localhost:54321")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-role")
	t.Setenv("CREDENTIAL_SECRET", "0123456789abcdef0123456789abcdef")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.Origins)
	assert.Equal(t, 600*time.Second, cfg.Telegram.LoginTTL)
	assert.Equal(t, 300*time.Second, cfg.Telegram.WidgetTTL)
	assert.Equal(t, 600*time.Second, cfg.Wallet.NonceTTL)
	assert.Equal(t, WalletModeMagicLink, cfg.Wallet.SessionMode)
	assert.True(t, cfg.Wallet.ClientRedeem)
	assert.Equal(t, NonceStorePostgres, cfg.Nonce.Store)
	assert.Equal(t, 5*time.Second, cfg.Auth.CallTimeout)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("NONCE_STORE", "redis")
	t.Setenv("WALLET_SESSION_MODE", "password")
	t.Setenv("TG_LOGIN_TTL", "2m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.Origins)
	assert.Equal(t, NonceStoreRedis, cfg.Nonce.Store)
	assert.Equal(t, WalletModePassword, cfg.Wallet.SessionMode)
	assert.Equal(t, 2*time.Minute, cfg.Telegram.LoginTTL)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := map[string][2]string{
		"short secret":  {"CREDENTIAL_SECRET", "short"},
		"unknown store": {"NONCE_STORE", "memcached"},
		"unknown mode":  {"WALLET_SESSION_MODE", "oauth"},
		"zero ttl":      {"WALLET_NONCE_TTL", "0s"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresBotToken(t *testing.T) {
	setRequired(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := Load()
	assert.Error(t, err)
}
