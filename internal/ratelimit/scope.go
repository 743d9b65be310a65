package ratelimit

import "github.com/danielgtaylor/huma/v2"

// Scope groups endpoints that share rate limit counters.
type Scope string

const (
	// ScopeGlobal applies to every request.
	ScopeGlobal Scope = "global"
	// ScopeVerify covers checks that consult web reputation.
	ScopeVerify Scope = "verify"
	// ScopeLookup covers registry-only checks.
	ScopeLookup Scope = "lookup"
	// ScopeHistory covers scan history recording.
	ScopeHistory Scope = "history"
)

// MetadataKey is the huma operation metadata key holding an EndpointConfig.
const MetadataKey = "rateLimit"

// EndpointConfig is per-operation rate limit configuration.
type EndpointConfig struct {
	// Scope adds a policy scope on top of ScopeGlobal.
	Scope Scope
	// Limits, when set, replace the policy limits for this endpoint.
	Limits []LimitConfig
	// Disabled skips rate limiting.
	Disabled bool
}

// EndpointConfigFor returns the operation's EndpointConfig, if any.
func EndpointConfigFor(op *huma.Operation) (EndpointConfig, bool) {
	if op == nil || op.Metadata == nil {
		return EndpointConfig{}, false
	}

	cfg, ok := op.Metadata[MetadataKey].(EndpointConfig)

	return cfg, ok
}

// Scopes returns the scopes an operation is counted against.
func Scopes(op *huma.Operation) []Scope {
	if cfg, ok := EndpointConfigFor(op); ok && cfg.Scope != "" && cfg.Scope != ScopeGlobal {
		return []Scope{ScopeGlobal, cfg.Scope}
	}

	return []Scope{ScopeGlobal}
}
