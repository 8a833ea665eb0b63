package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/shared/valueobject"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultRatesPrefix = "settlement:rates:"
	defaultRatesTTL    = 6 * time.Hour
)

// RedisExchangeRateStore keeps live exchange rates in one Redis hash per
// base currency. The hash expires as a whole so stale rates fall back to the
// static account rates.
type RedisExchangeRateStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisExchangeRateStore creates a rate store on an existing Redis client
func NewRedisExchangeRateStore(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisExchangeRateStore {
	if ttl <= 0 {
		ttl = defaultRatesTTL
	}
	return &RedisExchangeRateStore{
		client:    client,
		keyPrefix: defaultRatesPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

// GetRates returns the live rates against base, empty when none are cached
func (s *RedisExchangeRateStore) GetRates(ctx context.Context, base valueobject.Currency) (map[valueobject.Currency]decimal.Decimal, error) {
	fields, err := s.client.HGetAll(ctx, s.key(base)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read exchange rates: %w", err)
	}

	rates := make(map[valueobject.Currency]decimal.Decimal, len(fields))
	for code, raw := range fields {
		rate, err := decimal.NewFromString(raw)
		if err != nil || !rate.IsPositive() {
			s.logger.Warn("skipping malformed cached exchange rate",
				zap.String("currency", code),
				zap.String("value", raw),
			)
			continue
		}
		rates[valueobject.Currency(code)] = rate
	}
	return rates, nil
}

// SetRates replaces the live rates against base and restarts their lifetime
func (s *RedisExchangeRateStore) SetRates(ctx context.Context, base valueobject.Currency, rates map[valueobject.Currency]decimal.Decimal) error {
	key := s.key(base)
	values := make([]any, 0, len(rates)*2)
	for code, rate := range rates {
		values = append(values, code.String(), rate.String())
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values...)
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store exchange rates: %w", err)
	}
	return nil
}

func (s *RedisExchangeRateStore) key(base valueobject.Currency) string {
	return s.keyPrefix + base.String()
}

// InMemoryExchangeRateStore keeps live exchange rates in process memory
type InMemoryExchangeRateStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[valueobject.Currency]ratesEntry
}

type ratesEntry struct {
	rates     map[valueobject.Currency]decimal.Decimal
	expiresAt time.Time
}

// NewInMemoryExchangeRateStore creates an in-process rate store
func NewInMemoryExchangeRateStore(ttl time.Duration) *InMemoryExchangeRateStore {
	if ttl <= 0 {
		ttl = defaultRatesTTL
	}
	return &InMemoryExchangeRateStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[valueobject.Currency]ratesEntry),
	}
}

// GetRates returns a copy of the unexpired rates against base
func (s *InMemoryExchangeRateStore) GetRates(_ context.Context, base valueobject.Currency) (map[valueobject.Currency]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[base]
	out := make(map[valueobject.Currency]decimal.Decimal, len(e.rates))
	if !ok || s.now().After(e.expiresAt) {
		return out, nil
	}
	for code, rate := range e.rates {
		out[code] = rate
	}
	return out, nil
}

// SetRates replaces the rates against base
func (s *InMemoryExchangeRateStore) SetRates(_ context.Context, base valueobject.Currency, rates map[valueobject.Currency]decimal.Decimal) error {
	copied := make(map[valueobject.Currency]decimal.Decimal, len(rates))
	for code, rate := range rates {
		copied[code] = rate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[base] = ratesEntry{rates: copied, expiresAt: s.now().Add(s.ttl)}
	return nil
}

var (
	_ appsettlement.ExchangeRateProvider = (*RedisExchangeRateStore)(nil)
	_ appsettlement.ExchangeRateProvider = (*InMemoryExchangeRateStore)(nil)
)
