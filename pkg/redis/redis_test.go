package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/altsignals/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestCache_DisabledIsNoop(t *testing.T) {
	client := &Client{enabled: false}
	cache := NewCache(client, "altsignals")

	ctx := context.Background()

	err := cache.Set(ctx, "k", map[string]int{"a": 1}, TTLShort)
	assert.NoError(t, err)

	var dest map[string]int
	found, err := cache.Get(ctx, "k", &dest)
	assert.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Delete(ctx, "k"))
}

func TestRateLimiter_DisabledAllowsAll(t *testing.T) {
	client := &Client{enabled: false}
	limiter := NewRateLimiter(client, "altsignals")

	cfg := RateLimitConfig{Key: "test", Limit: 1, Window: time.Second}

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		allowed, remaining, err := limiter.Allow(ctx, cfg)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, cfg.Limit, remaining)
	}
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "edgar:submissions:0001543151", FilingsKey("0001543151"))
	assert.Equal(t, "wiki:pageviews:Uber:20240101:20240201", PageviewsKey("Uber", "20240101", "20240201"))
}
