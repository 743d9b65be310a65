package ratelimit

import (
	"context"
	"time"
)

// Store records requests in a sliding window.
type Store interface {
	// Record adds a request for key and returns how many requests fall in the
	// window ending now.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}

// LimitConfig allows Max requests per Window.
type LimitConfig struct {
	Window time.Duration
	Max    int64
}

// Policy maps scopes to the limits enforced for them. Every limit of every
// resolved scope must pass.
type Policy struct {
	Limits map[Scope][]LimitConfig
}

// DefaultPolicy returns the limits used by the server. Reputation checks call
// paid or third-party services and get the tightest budget.
func DefaultPolicy() *Policy {
	return &Policy{
		Limits: map[Scope][]LimitConfig{
			ScopeGlobal: {
				{Window: time.Minute, Max: 300},
			},
			ScopeVerify: {
				{Window: time.Minute, Max: 20},
				{Window: time.Hour, Max: 300},
			},
			ScopeLookup: {
				{Window: time.Minute, Max: 120},
			},
			ScopeHistory: {
				{Window: time.Minute, Max: 60},
			},
		},
	}
}

// MaxWindow returns the longest window in the policy.
func (p *Policy) MaxWindow() time.Duration {
	var longest time.Duration

	for _, limits := range p.Limits {
		for _, l := range limits {
			longest = max(longest, l.Window)
		}
	}

	return longest
}
