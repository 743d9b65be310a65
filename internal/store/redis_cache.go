package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/qr-safe/internal/trust"
	"go.uber.org/zap"
)

// cacheEntry records a hit or a miss so repeat scans of unknown URLs are also
// served from cache.
type cacheEntry[T any] struct {
	Found  bool `json:"found"`
	Record *T   `json:"record,omitempty"`
}

// RedisCacheRegistry wraps a Registry with Redis caching for reads.
type RedisCacheRegistry struct {
	registry        trust.Registry
	client          *redis.Client
	partnerPrefix   string
	maliciousPrefix string
	ttl             time.Duration
	logger          *zap.Logger
}

// NewRedisCacheRegistry creates a new Redis-cached registry decorator.
func NewRedisCacheRegistry(
	registry trust.Registry, client *redis.Client, ttl time.Duration, logger *zap.Logger,
) *RedisCacheRegistry {
	return &RedisCacheRegistry{
		registry:        registry,
		client:          client,
		partnerPrefix:   "registry:partner:",
		maliciousPrefix: "registry:malicious:",
		ttl:             ttl,
		logger:          logger,
	}
}

// FindPartner checks the cache first and falls back to the wrapped registry.
func (r *RedisCacheRegistry) FindPartner(ctx context.Context, key trust.NormalizedURL) (*trust.VerifiedPartner, error) {
	return cachedFind(ctx, r, r.partnerPrefix+string(key), func() (*trust.VerifiedPartner, error) {
		return r.registry.FindPartner(ctx, key)
	})
}

// FindMalicious checks the cache first and falls back to the wrapped registry.
func (r *RedisCacheRegistry) FindMalicious(ctx context.Context, key trust.NormalizedURL) (*trust.MaliciousURL, error) {
	return cachedFind(ctx, r, r.maliciousPrefix+string(key), func() (*trust.MaliciousURL, error) {
		return r.registry.FindMalicious(ctx, key)
	})
}

func cachedFind[T any](
	ctx context.Context, r *RedisCacheRegistry, cacheKey string, load func() (*T, error),
) (*T, error) {
	entry, err := getEntry[T](ctx, r.client, cacheKey)
	if err == nil {
		if !entry.Found {
			return nil, trust.ErrNotFound
		}

		return entry.Record, nil
	}

	if !errors.Is(err, redis.Nil) {
		r.logger.Warn("registry cache read failed", zap.String("key", cacheKey), zap.Error(err))
	}

	record, err := load()

	switch {
	case err == nil:
		r.setEntry(ctx, cacheKey, cacheEntry[T]{Found: true, Record: record})
	case errors.Is(err, trust.ErrNotFound):
		r.setEntry(ctx, cacheKey, cacheEntry[T]{Found: false})
	}

	return record, err
}

func getEntry[T any](ctx context.Context, client *redis.Client, key string) (*cacheEntry[T], error) {
	raw, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}

	var entry cacheEntry[T]
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}

	return &entry, nil
}

func (r *RedisCacheRegistry) setEntry(ctx context.Context, key string, entry any) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return
	}

	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		r.logger.Warn("registry cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate drops cached results for key, used after the registry changes.
func (r *RedisCacheRegistry) Invalidate(ctx context.Context, key trust.NormalizedURL) error {
	return r.client.Del(ctx, r.partnerPrefix+string(key), r.maliciousPrefix+string(key)).Err()
}

type registryWriter interface {
	SavePartner(ctx context.Context, partner trust.VerifiedPartner) (bool, error)
	SaveMalicious(ctx context.Context, record trust.MaliciousURL) (bool, error)
}

// SavePartner writes through to the wrapped registry and evicts the key.
func (r *RedisCacheRegistry) SavePartner(ctx context.Context, partner trust.VerifiedPartner) (bool, error) {
	w, ok := r.registry.(registryWriter)
	if !ok {
		return false, errReadOnlyRegistry
	}

	added, err := w.SavePartner(ctx, partner)
	if err != nil || !added {
		return added, err
	}

	return added, r.Invalidate(ctx, partner.NormalizedURL)
}

// SaveMalicious writes through to the wrapped registry and evicts the key.
func (r *RedisCacheRegistry) SaveMalicious(ctx context.Context, record trust.MaliciousURL) (bool, error) {
	w, ok := r.registry.(registryWriter)
	if !ok {
		return false, errReadOnlyRegistry
	}

	added, err := w.SaveMalicious(ctx, record)
	if err != nil || !added {
		return added, err
	}

	return added, r.Invalidate(ctx, record.NormalizedURL)
}

// Ping checks Redis and the wrapped registry.
func (r *RedisCacheRegistry) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping registry cache: %w", err)
	}

	if p, ok := r.registry.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}

	return nil
}

var _ trust.Registry = (*RedisCacheRegistry)(nil)
