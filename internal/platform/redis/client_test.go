package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/platform/config"
)

func TestNew(t *testing.T) {
	t.Run("empty URL disables redis", func(t *testing.T) {
		c, err := New(context.Background(), config.RedisConfig{})
		require.NoError(t, err)
		assert.Nil(t, c)
	})

	t.Run("bad URL", func(t *testing.T) {
		_, err := New(context.Background(), config.RedisConfig{URL: "http://nope"})
		assert.Error(t, err)
	})

	t.Run("connects and reports health", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := config.Default().Redis
		cfg.URL = "redis://" + mr.Addr()

		c, err := New(context.Background(), cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = c.Close() })

		assert.NoError(t, c.Health(context.Background()))

		mr.Close()
		assert.Error(t, c.Health(context.Background()))
	})
}

func TestPoolCollector(t *testing.T) {
	mr := miniredis.RunT(t)
	c := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(context.Background()).Err())

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c.PoolCollector()))

	assert.Equal(t, 5, testutil.CollectAndCount(c.PoolCollector()))
	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "folio_redis_pool_conns")
	assert.Contains(t, names, "folio_redis_pool_misses_total")
}

func TestWrap(t *testing.T) {
	mr := miniredis.RunT(t)
	c := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}
