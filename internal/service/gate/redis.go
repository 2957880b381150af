package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	redisSvc "quietdrop/internal/service/redis"
)

const keyPrefix = "quietdrop:gate:"

// fixedWindow applies the same transition as MemoryGate.Allow atomically
// on a hash {count, start}. Times are milliseconds from the caller's clock.
var fixedWindow = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local rec = redis.call('HMGET', KEYS[1], 'count', 'start')
local count = tonumber(rec[1])
local start = tonumber(rec[2])
if count == nil or start == nil or now - start > window then
  count = 0
  start = now
end
local allowed = 0
if count <= limit then
  count = count + 1
  allowed = 1
end
redis.call('HSET', KEYS[1], 'count', count, 'start', start)
redis.call('PEXPIRE', KEYS[1], window * 2 + 1)
return allowed
`)

// RedisGate shares gate records between server instances. Expired
// records fall out through key TTLs, so no sweep is needed.
type RedisGate struct {
	redis  *redisSvc.RedisService
	window time.Duration
	limit  int
	now    func() time.Time
}

func NewRedisGate(r *redisSvc.RedisService, window time.Duration, limit int) *RedisGate {
	return &RedisGate{
		redis:  r,
		window: window,
		limit:  limit,
		now:    time.Now,
	}
}

func (g *RedisGate) Check(ctx context.Context, addr string) (bool, error) {
	res, err := g.redis.RunScript(ctx, fixedWindow, []string{keyPrefix + addr},
		g.now().UnixMilli(), g.window.Milliseconds(), g.limit)
	if err != nil {
		return false, fmt.Errorf("gate script: %w", err)
	}
	return res == 1, nil
}

// Reset forgets addr.
func (g *RedisGate) Reset(ctx context.Context, addr string) error {
	return g.redis.Del(ctx, keyPrefix+addr)
}
