package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goal-auth-bridge/internal/common/config"
)

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()

	c, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer c.Close()
	assert.NoError(t, c.HealthCheck(context.Background()))

	mr.Close()
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestOpenRejectsEmptyAddr(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{})
	assert.Error(t, err)
}
