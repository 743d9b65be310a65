package trust

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RegistryLookup resolves a key against the registries.
type RegistryLookup interface {
	Lookup(ctx context.Context, key NormalizedURL) (DBCheck, error)
}

// ReputationSource produces a reputation signal and never fails.
type ReputationSource interface {
	Check(ctx context.Context, key NormalizedURL) ReputationSignal
}

// Verifier runs the registry lookup and the reputation check for one scanned
// URL concurrently and composes their results.
type Verifier struct {
	registry   RegistryLookup
	reputation ReputationSource
	fallback   bool
	logger     *zap.Logger
	newID      func() string
	now        func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithFallback enables or disables the local heuristic when the whole backend
// is unreachable. It is enabled by default.
func WithFallback(enabled bool) VerifierOption {
	return func(v *Verifier) {
		v.fallback = enabled
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// WithIDGenerator overrides request id generation.
func WithIDGenerator(newID func() string) VerifierOption {
	return func(v *Verifier) {
		v.newID = newID
	}
}

// NewVerifier creates a verifier.
func NewVerifier(
	registry RegistryLookup,
	reputation ReputationSource,
	logger *zap.Logger,
	opts ...VerifierOption,
) *Verifier {
	v := &Verifier{
		registry:   registry,
		reputation: reputation,
		fallback:   true,
		logger:     logger,
		newID:      uuid.NewString,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

// Verify returns a verdict for raw. Partial failures produce a degraded
// verdict. An error is returned only when both the registry and the
// reputation collaborator are unreachable and the fallback is disabled.
func (v *Verifier) Verify(ctx context.Context, raw string) (Verdict, error) {
	key := Normalize(raw)

	var (
		db    DBCheck
		dbErr error
		web   ReputationSignal
		g     errgroup.Group
	)

	// Neither task returns an error so one failing never cancels the other.
	g.Go(func() error {
		db, dbErr = v.registry.Lookup(ctx, key)
		return nil
	})

	g.Go(func() error {
		web = v.reputation.Check(ctx, key)
		return nil
	})

	_ = g.Wait()

	var verdict Verdict

	switch {
	case dbErr != nil && web.Degraded:
		if !v.fallback {
			return Verdict{}, fmt.Errorf("%w: %w", ErrBackendUnreachable, dbErr)
		}

		v.logger.Warn("backend unreachable, using local heuristic",
			zap.String("normalizedUrl", key.String()),
			zap.NamedError("registryError", dbErr),
			zap.NamedError("reputationError", web.Err),
		)

		verdict = Heuristic(raw)
	case dbErr != nil:
		v.logger.Error("registry lookup failed",
			zap.String("normalizedUrl", key.String()),
			zap.Error(dbErr),
		)

		verdict = Compose(UnavailableCheck(dbErr), web)
	default:
		verdict = Compose(db, web)
	}

	verdict.RequestID = v.newID()
	verdict.ScannedURL = raw
	verdict.NormalizedURL = key
	verdict.CheckedAt = v.now()

	return verdict, nil
}

// CheckRegistry runs only the registry lookup.
func (v *Verifier) CheckRegistry(ctx context.Context, raw string) (NormalizedURL, DBCheck, error) {
	key := Normalize(raw)

	db, err := v.registry.Lookup(ctx, key)

	return key, db, err
}

// CheckReputation runs only the reputation check.
func (v *Verifier) CheckReputation(ctx context.Context, raw string) (NormalizedURL, ReputationSignal) {
	key := Normalize(raw)

	return key, v.reputation.Check(ctx, key)
}
