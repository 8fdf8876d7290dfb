package cart

import (
	"context"
	"fmt"

	"storefront/internal/config"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// NewStorage builds the storage backend selected by cfg.Cart.Backend. The returned close
// function releases any connection the backend holds.
func NewStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (Storage, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Cart.Backend {
	case config.CartBackendMemory:
		return NewMemoryStorage(), noop, nil

	case config.CartBackendFile:
		storage, err := NewFileStorage(cfg.Cart.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return storage, noop, nil

	case config.CartBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return NewRedisStorage(client, cfg.Redis.Prefix, cfg.Cart.Retention), client.Close, nil

	case config.CartBackendS3:
		storage, err := NewS3Storage(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.Prefix, logger)
		if err != nil {
			return nil, nil, err
		}
		return storage, noop, nil

	default:
		return nil, nil, fmt.Errorf("unknown cart backend %q", cfg.Cart.Backend)
	}
}
