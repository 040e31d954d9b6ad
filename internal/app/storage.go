package app

import (
	"context"

	"github.com/go-faster/errors"
	goredis "github.com/redis/go-redis/v9"

	"github.com/xenking/lester-loyalty/internal/storage"
	"github.com/xenking/lester-loyalty/internal/storage/memory"
	"github.com/xenking/lester-loyalty/internal/storage/postgres"
	"github.com/xenking/lester-loyalty/internal/storage/redis"
)

// OpenStorage connects the configured backend and returns it together with
// a func that releases its connections. Postgres migrations run on open.
func OpenStorage(ctx context.Context, cfg StorageConfig) (storage.KV, func(), error) {
	switch cfg.Driver {
	case DriverMemory:
		return memory.New(), func() {}, nil

	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "create db pool")
		}
		if err := postgres.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, errors.Wrap(err, "run migrations")
		}
		return postgres.NewKV(pool), pool.Close, nil

	case DriverRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, errors.Wrap(err, "ping redis")
		}
		return redis.NewKV(client, cfg.RedisPrefix), func() { _ = client.Close() }, nil
	}
	return nil, nil, errors.Errorf("unknown storage driver %q", cfg.Driver)
}
