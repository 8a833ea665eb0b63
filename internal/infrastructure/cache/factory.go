package cache

import (
	"context"
	"fmt"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Idempotency backends
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Stores bundles the Redis-or-memory stores the server needs
type Stores struct {
	Idempotency shared.IdempotencyStore
	Rates       appsettlement.ExchangeRateProvider
	// Redis is nil when the memory backend is in use
	Redis *redis.Client
}

// Close releases the idempotency store and the Redis client
func (s *Stores) Close() error {
	var err error
	if s.Idempotency != nil {
		err = s.Idempotency.Close()
	}
	if s.Redis != nil {
		if closeErr := s.Redis.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// StoreFactory creates the idempotency and exchange-rate stores from configuration
type StoreFactory struct {
	redisConfig config.RedisConfig
	eventConfig config.EventConfig
	settlement  config.SettlementConfig
	logger      *zap.Logger
	dial        func(context.Context, config.RedisConfig) (*redis.Client, error)
}

// StoreFactoryOption is a functional option for configuring the factory
type StoreFactoryOption func(*StoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.logger = logger
	}
}

// WithDialer replaces how the Redis client is opened
func WithDialer(dial func(context.Context, config.RedisConfig) (*redis.Client, error)) StoreFactoryOption {
	return func(f *StoreFactory) {
		f.dial = dial
	}
}

// NewStoreFactory creates a new factory
func NewStoreFactory(cfg *config.Config, opts ...StoreFactoryOption) *StoreFactory {
	f := &StoreFactory{
		redisConfig: cfg.Redis,
		eventConfig: cfg.Event,
		settlement:  cfg.Settlement,
		logger:      zap.NewNop(),
		dial:        NewRedisClient,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create opens Redis when configured and falls back to in-memory stores
// when it is unreachable, unless Redis is required
func (f *StoreFactory) Create(ctx context.Context) (*Stores, error) {
	if f.eventConfig.IdempotencyBackend == BackendMemory {
		f.logger.Info("using in-memory idempotency and exchange rate stores")
		return f.inMemory(), nil
	}

	client, err := f.dial(ctx, f.redisConfig)
	if err == nil {
		f.logger.Info("using Redis idempotency and exchange rate stores",
			zap.String("addr", f.redisConfig.Addr()),
		)
		return &Stores{
			Idempotency: NewRedisIdempotencyStore(client, ""),
			Rates:       NewRedisExchangeRateStore(client, f.settlement.RatesCacheTTL, f.logger.Named("rates")),
			Redis:       client,
		}, nil
	}

	if f.eventConfig.RequireRedis {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory stores; "+
		"redelivered events are only deduplicated within this process",
		zap.Error(err),
	)
	return f.inMemory(), nil
}

func (f *StoreFactory) inMemory() *Stores {
	return &Stores{
		Idempotency: NewInMemoryIdempotencyStore(),
		Rates:       NewInMemoryExchangeRateStore(f.settlement.RatesCacheTTL),
	}
}
