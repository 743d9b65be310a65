//go:build integration

package reputation_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/qr-safe/internal/reputation"
	"github.com/serroba/qr-safe/internal/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCacheIntegration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}

	var calls atomic.Int32

	inner := checkerFunc(func(_ context.Context, key trust.NormalizedURL) (trust.ReputationSignal, error) {
		calls.Add(1)

		if key == "https://down.example" {
			return trust.ReputationSignal{}, errors.New("upstream down")
		}

		return trust.ReputationSignal{Safety: trust.SafetySafe, Source: "A", Details: "fine"}, nil
	})
	cache := reputation.NewCache(inner, client, time.Minute, zap.NewNop())

	client.Del(ctx, "reputation:https://cached.example", "reputation:https://down.example")

	t.Run("serves repeat checks from cache", func(t *testing.T) {
		calls.Store(0)

		first, err := cache.Check(ctx, "https://cached.example")
		require.NoError(t, err)

		second, err := cache.Check(ctx, "https://cached.example")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, trust.SafetySafe, second.Safety)
		assert.Equal(t, int32(1), calls.Load())
	})

	t.Run("does not cache failures", func(t *testing.T) {
		calls.Store(0)

		_, err := cache.Check(ctx, "https://down.example")
		require.Error(t, err)

		_, err = cache.Check(ctx, "https://down.example")
		require.Error(t, err)

		assert.Equal(t, int32(2), calls.Load())
	})
}
