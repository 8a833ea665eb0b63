package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func unreachableRedis(context.Context, config.RedisConfig) (*redis.Client, error) {
	return nil, errors.New("connection refused")
}

func TestStoreFactory_MemoryBackend(t *testing.T) {
	cfg := &config.Config{Event: config.EventConfig{IdempotencyBackend: BackendMemory}}
	dialed := false
	factory := NewStoreFactory(cfg, WithLogger(zaptest.NewLogger(t)),
		WithDialer(func(context.Context, config.RedisConfig) (*redis.Client, error) {
			dialed = true
			return nil, errors.New("unexpected dial")
		}),
	)

	stores, err := factory.Create(context.Background())
	require.NoError(t, err)
	defer stores.Close()

	assert.False(t, dialed)
	assert.Nil(t, stores.Redis)
	assert.IsType(t, &InMemoryIdempotencyStore{}, stores.Idempotency)
	assert.IsType(t, &InMemoryExchangeRateStore{}, stores.Rates)
}

func TestStoreFactory_FallsBackWhenRedisIsDown(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{Host: "localhost", Port: 6379},
		Event: config.EventConfig{IdempotencyBackend: BackendRedis},
	}
	factory := NewStoreFactory(cfg, WithLogger(zaptest.NewLogger(t)), WithDialer(unreachableRedis))

	stores, err := factory.Create(context.Background())
	require.NoError(t, err)
	defer stores.Close()

	assert.IsType(t, &InMemoryIdempotencyStore{}, stores.Idempotency)
}

func TestStoreFactory_RequireRedis(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{Host: "localhost", Port: 6379},
		Event: config.EventConfig{IdempotencyBackend: BackendRedis, RequireRedis: true},
	}
	factory := NewStoreFactory(cfg, WithLogger(zaptest.NewLogger(t)), WithDialer(unreachableRedis))

	stores, err := factory.Create(context.Background())
	assert.Error(t, err)
	assert.Nil(t, stores)
}
