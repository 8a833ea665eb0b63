//go:build integration

package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/erp/settlement/internal/infrastructure/auth"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"
)

// newRedisClient starts a Redis container and returns a connected client
func newRedisClient(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port.Port())
	require.NoError(t, err)

	client, err := NewRedisClient(ctx, config.RedisConfig{Host: host, Port: portNum})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisIdempotencyStore_Integration(t *testing.T) {
	store := NewRedisIdempotencyStore(newRedisClient(t), "")
	ctx := context.Background()

	isNew, err := store.MarkProcessed(ctx, "rebate_accrual:event-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)

	isNew, err = store.MarkProcessed(ctx, "rebate_accrual:event-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)

	require.NoError(t, store.Unmark(ctx, "rebate_accrual:event-1"))
	processed, err := store.IsProcessed(ctx, "rebate_accrual:event-1")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestRedisExchangeRateStore_Integration(t *testing.T) {
	client := newRedisClient(t)
	store := NewRedisExchangeRateStore(client, time.Minute, zaptest.NewLogger(t))
	ctx := context.Background()

	rates, err := store.GetRates(ctx, valueobject.CNY)
	require.NoError(t, err)
	assert.Empty(t, rates)

	require.NoError(t, store.SetRates(ctx, valueobject.CNY, map[valueobject.Currency]decimal.Decimal{
		valueobject.USD: decimal.NewFromFloat(7.25),
		valueobject.EUR: decimal.NewFromFloat(7.9),
	}))
	require.NoError(t, store.SetRates(ctx, valueobject.CNY, map[valueobject.Currency]decimal.Decimal{
		valueobject.USD: decimal.NewFromFloat(7.3),
	}))

	rates, err = store.GetRates(ctx, valueobject.CNY)
	require.NoError(t, err)
	require.Len(t, rates, 1)
	assert.True(t, rates[valueobject.USD].Equal(decimal.NewFromFloat(7.3)))

	ttl, err := client.TTL(ctx, "settlement:rates:CNY").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, client.HSet(ctx, "settlement:rates:CNY", "HKD", "not-a-number").Err())
	rates, err = store.GetRates(ctx, valueobject.CNY)
	require.NoError(t, err)
	assert.NotContains(t, rates, valueobject.HKD)
}

func TestRedisTokenBlacklist_Integration(t *testing.T) {
	blacklist := auth.NewRedisTokenBlacklist(newRedisClient(t))
	ctx := context.Background()

	require.NoError(t, blacklist.AddToBlacklist(ctx, "jti-1", time.Minute))
	require.NoError(t, blacklist.AddToBlacklist(ctx, "jti-expired", 0))

	revoked, err := blacklist.IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = blacklist.IsBlacklisted(ctx, "jti-expired")
	require.NoError(t, err)
	assert.False(t, revoked)
}
