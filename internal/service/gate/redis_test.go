package gate

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	redisSvc "quietdrop/internal/service/redis"
)

func newTestRedisGate(t *testing.T, window time.Duration, limit int) *RedisGate {
	t.Helper()
	addr := os.Getenv("QD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("QD_TEST_REDIS_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := redisSvc.NewRedis(rdb)
	require.NoError(t, svc.Ping(context.Background()))
	return NewRedisGate(svc, window, limit)
}

func TestRedisGate_Boundary(t *testing.T) {
	const limit = 3
	window := 10 * time.Second
	g := newTestRedisGate(t, window, limit)
	clk := newFakeClock()
	g.now = clk.Now

	ctx := context.Background()
	addr := "test-" + t.Name()
	require.NoError(t, g.Reset(ctx, addr))
	t.Cleanup(func() { _ = g.Reset(ctx, addr) })

	for i := 0; i < limit+1; i++ {
		ok, err := g.Check(ctx, addr)
		require.NoError(t, err)
		require.True(t, ok, "request %d", i+1)
	}
	ok, err := g.Check(ctx, addr)
	require.NoError(t, err)
	require.False(t, ok)

	clk.Advance(window + time.Millisecond)
	ok, err = g.Check(ctx, addr)
	require.NoError(t, err)
	require.True(t, ok)
}
