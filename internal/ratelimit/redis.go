package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "session:login:"

// Redis — лимитер, общий для всех экземпляров сервиса.
// Счётчик окна — ключ с INCR и TTL, равным окну.
type Redis struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedis подключается к Redis по URL (redis://:pass@host:6379/0) и проверяет соединение.
func NewRedis(ctx context.Context, redisURL string, limit int, w time.Duration) (*Redis, error) {
	const op = "ratelimit.NewRedis"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	r := &Redis{rdb: redis.NewClient(opt), prefix: defaultPrefix, limit: limit, window: w}

	if err := r.Ping(ctx); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r, nil
}

// Allow атомарно (MULTI/EXEC) увеличивает счётчик, выставляет TTL только
// новому ключу и читает остаток окна.
func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	const op = "ratelimit.Redis.Allow"

	k := r.prefix + key

	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, r.window)
	ttl := pipe.PTTL(ctx, k)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, fmt.Errorf("%s: %w", op, err)
	}

	if incr.Val() > int64(r.limit) {
		retry := ttl.Val()
		if retry <= 0 {
			retry = r.window
		}
		return false, retry, nil
	}

	return true, 0, nil
}

// Ping проверяет доступность Redis.
func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// Close закрывает клиент.
func (r *Redis) Close() error { return r.rdb.Close() }

var _ Limiter = (*Redis)(nil)
