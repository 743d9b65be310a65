package reputation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/qr-safe/internal/trust"
	"go.uber.org/zap"
)

type cachedSignal struct {
	Safety     trust.Safety `json:"safety"`
	Source     string       `json:"source"`
	Details    string       `json:"details"`
	RawResults string       `json:"rawResults,omitempty"`
}

// Cache wraps a checker with Redis caching of successful answers. Failures
// are never cached.
type Cache struct {
	checker trust.ReputationChecker
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCache creates a Redis-cached reputation checker.
func NewCache(checker trust.ReputationChecker, client *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{
		checker: checker,
		client:  client,
		prefix:  "reputation:",
		ttl:     ttl,
		logger:  logger,
	}
}

func (c *Cache) Check(ctx context.Context, key trust.NormalizedURL) (trust.ReputationSignal, error) {
	cacheKey := c.prefix + string(key)

	raw, err := c.client.Get(ctx, cacheKey).Bytes()
	if err == nil {
		var hit cachedSignal
		if err := json.Unmarshal(raw, &hit); err == nil {
			return trust.ReputationSignal{
				Safety:     hit.Safety,
				Source:     hit.Source,
				Details:    hit.Details,
				RawResults: hit.RawResults,
			}, nil
		}
	}

	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("reputation cache read failed", zap.String("key", cacheKey), zap.Error(err))
	}

	signal, err := c.checker.Check(ctx, key)
	if err != nil {
		return signal, err
	}

	payload, err := json.Marshal(cachedSignal{
		Safety:     signal.Safety,
		Source:     signal.Source,
		Details:    signal.Details,
		RawResults: signal.RawResults,
	})
	if err == nil {
		if err := c.client.Set(ctx, cacheKey, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("reputation cache write failed", zap.String("key", cacheKey), zap.Error(err))
		}
	}

	return signal, nil
}

var _ trust.ReputationChecker = (*Cache)(nil)
