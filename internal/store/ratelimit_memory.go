package store

import (
	"context"
	"sync"
	"time"
)

// RateLimitMemoryStore is an in-memory implementation of ratelimit.Store,
// used when Redis is not configured and in tests.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

// NewRateLimitMemoryStore creates a new in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	kept := prune(s.requests[key], now.Add(-window))
	kept = append(kept, now)
	s.requests[key] = kept

	return int64(len(kept)), nil
}

// Sweep drops keys with no request newer than maxWindow and returns how many
// keys remain.
func (s *RateLimitMemoryStore) Sweep(maxWindow time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxWindow)

	for key, timestamps := range s.requests {
		if kept := prune(timestamps, cutoff); len(kept) > 0 {
			s.requests[key] = kept
		} else {
			delete(s.requests, key)
		}
	}

	return len(s.requests)
}

// prune keeps timestamps after cutoff; timestamps are in insertion order.
func prune(timestamps []time.Time, cutoff time.Time) []time.Time {
	for i, ts := range timestamps {
		if ts.After(cutoff) {
			return timestamps[i:]
		}
	}

	return timestamps[:0]
}
