package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

type (
	RedisService struct {
		rdb *redis.Client
	}
)

func NewRedis(rdb *redis.Client) *RedisService {
	return &RedisService{
		rdb: rdb,
	}
}

func (r *RedisService) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// RunScript runs script (EVALSHA, falling back to EVAL) and expects an
// integer reply.
func (r *RedisService) RunScript(ctx context.Context, script *redis.Script, keys []string, args ...any) (int64, error) {
	return script.Run(ctx, r.rdb, keys, args...).Int64()
}

func (r *RedisService) Del(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

func (r *RedisService) Close() error {
	return r.rdb.Close()
}
