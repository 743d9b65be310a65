//go:build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/qr-safe/internal/registry"
	"github.com/serroba/qr-safe/internal/store"
	"github.com/serroba/qr-safe/internal/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func getRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}

	return "localhost:6379"
}

func openRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: getRedisAddr()})
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })

	return client
}

type countingRegistry struct {
	trust.Registry
	partnerCalls int
}

func (c *countingRegistry) FindPartner(ctx context.Context, key trust.NormalizedURL) (*trust.VerifiedPartner, error) {
	c.partnerCalls++

	return c.Registry.FindPartner(ctx, key)
}

func TestRedisCacheRegistryIntegration(t *testing.T) {
	ctx := context.Background()
	client := openRedis(t)

	mem, err := store.NewMemoryRegistry([]trust.VerifiedPartner{partner("https://cache-hit.example")}, nil)
	require.NoError(t, err)

	backing := &countingRegistry{Registry: mem}
	cached := store.NewRedisCacheRegistry(backing, client, time.Minute, zap.NewNop())

	t.Run("caches hits", func(t *testing.T) {
		key := trust.NormalizedURL("https://cache-hit.example")
		require.NoError(t, cached.Invalidate(ctx, key))

		first, err := cached.FindPartner(ctx, key)
		require.NoError(t, err)

		second, err := cached.FindPartner(ctx, key)
		require.NoError(t, err)

		assert.Equal(t, first.CompanyName, second.CompanyName)
		assert.Equal(t, 1, backing.partnerCalls)
	})

	t.Run("caches misses", func(t *testing.T) {
		key := trust.NormalizedURL("https://cache-miss.example")
		require.NoError(t, cached.Invalidate(ctx, key))
		backing.partnerCalls = 0

		_, err := cached.FindPartner(ctx, key)
		require.ErrorIs(t, err, trust.ErrNotFound)

		_, err = cached.FindPartner(ctx, key)
		require.ErrorIs(t, err, trust.ErrNotFound)

		assert.Equal(t, 1, backing.partnerCalls)
	})

	t.Run("pings redis and the wrapped registry", func(t *testing.T) {
		require.NoError(t, cached.Ping(ctx))
	})
}

func TestRedisCacheRegistrySeedEvictsMisses(t *testing.T) {
	ctx := context.Background()
	client := openRedis(t)

	mem, err := store.NewMemoryRegistry(nil, nil)
	require.NoError(t, err)

	cached := store.NewRedisCacheRegistry(mem, client, time.Minute, zap.NewNop())
	key := trust.NormalizedURL("https://seeded-later.example")
	require.NoError(t, cached.Invalidate(ctx, key))

	_, err = cached.FindPartner(ctx, key)
	require.ErrorIs(t, err, trust.ErrNotFound)

	result, err := registry.Seed(ctx, cached, []trust.VerifiedPartner{partner("https://seeded-later.example")}, nil, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, result.PartnersAdded)

	found, err := cached.FindPartner(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, found.NormalizedURL)

	require.NoError(t, cached.Invalidate(ctx, key))
}

func TestRateLimitRedisStoreIntegration(t *testing.T) {
	ctx := context.Background()
	client := openRedis(t)
	s := store.NewRateLimitRedisStore(client)

	key := "integration:" + t.Name()
	client.Del(ctx, "ratelimit:"+key)

	for want := int64(1); want <= 3; want++ {
		count, err := s.Record(ctx, key, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, count)
	}

	client.Del(ctx, "ratelimit:"+key)
}
