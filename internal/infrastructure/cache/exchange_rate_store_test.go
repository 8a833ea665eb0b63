package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryExchangeRateStore_SetAndGet(t *testing.T) {
	store := NewInMemoryExchangeRateStore(time.Hour)
	ctx := context.Background()

	rates, err := store.GetRates(ctx, valueobject.CNY)
	require.NoError(t, err)
	assert.Empty(t, rates)

	in := map[valueobject.Currency]decimal.Decimal{valueobject.USD: decimal.NewFromFloat(7.25)}
	require.NoError(t, store.SetRates(ctx, valueobject.CNY, in))
	in[valueobject.USD] = decimal.NewFromInt(1)

	rates, err = store.GetRates(ctx, valueobject.CNY)
	require.NoError(t, err)
	require.Contains(t, rates, valueobject.USD)
	assert.True(t, rates[valueobject.USD].Equal(decimal.NewFromFloat(7.25)))

	other, err := store.GetRates(ctx, valueobject.USD)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestInMemoryExchangeRateStore_SetReplaces(t *testing.T) {
	store := NewInMemoryExchangeRateStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.SetRates(ctx, valueobject.CNY, map[valueobject.Currency]decimal.Decimal{
		valueobject.USD: decimal.NewFromInt(7),
		valueobject.EUR: decimal.NewFromInt(8),
	}))
	require.NoError(t, store.SetRates(ctx, valueobject.CNY, map[valueobject.Currency]decimal.Decimal{
		valueobject.HKD: decimal.NewFromFloat(0.92),
	}))

	rates, err := store.GetRates(ctx, valueobject.CNY)
	require.NoError(t, err)
	assert.Len(t, rates, 1)
	assert.Contains(t, rates, valueobject.HKD)
}

func TestInMemoryExchangeRateStore_Expiry(t *testing.T) {
	store := NewInMemoryExchangeRateStore(time.Minute)
	now := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.SetRates(ctx, valueobject.CNY, map[valueobject.Currency]decimal.Decimal{
		valueobject.USD: decimal.NewFromInt(7),
	}))

	now = now.Add(30 * time.Second)
	rates, err := store.GetRates(ctx, valueobject.CNY)
	require.NoError(t, err)
	assert.Len(t, rates, 1)

	now = now.Add(time.Minute)
	rates, err = store.GetRates(ctx, valueobject.CNY)
	require.NoError(t, err)
	assert.Empty(t, rates)
}
