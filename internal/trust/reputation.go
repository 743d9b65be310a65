package trust

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SourceReputationFallback labels signals produced when the reputation
// collaborator could not answer.
const SourceReputationFallback = "Web Reputation (unavailable)"

// DefaultReputationTimeout bounds a reputation check when none is configured.
const DefaultReputationTimeout = 8 * time.Second

// ReputationChecker is an external web reputation collaborator.
type ReputationChecker interface {
	Check(ctx context.Context, key NormalizedURL) (ReputationSignal, error)
}

// ReputationAdapter calls a ReputationChecker under a timeout and converts
// every failure into an unknown, degraded signal.
type ReputationAdapter struct {
	checker ReputationChecker
	timeout time.Duration
	logger  *zap.Logger
}

// NewReputationAdapter creates an adapter. A non-positive timeout uses
// DefaultReputationTimeout.
func NewReputationAdapter(checker ReputationChecker, timeout time.Duration, logger *zap.Logger) *ReputationAdapter {
	if timeout <= 0 {
		timeout = DefaultReputationTimeout
	}

	return &ReputationAdapter{
		checker: checker,
		timeout: timeout,
		logger:  logger,
	}
}

type checkResult struct {
	signal ReputationSignal
	err    error
}

// Check returns within the configured timeout even if the collaborator
// ignores context cancellation.
func (a *ReputationAdapter) Check(ctx context.Context, key NormalizedURL) ReputationSignal {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make(chan checkResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				results <- checkResult{err: fmt.Errorf("reputation checker panic: %v", r)}
			}
		}()

		signal, err := a.checker.Check(ctx, key)
		results <- checkResult{signal: signal, err: err}
	}()

	select {
	case res := <-results:
		if res.err != nil {
			return a.degraded(key, res.err)
		}

		return res.signal
	case <-ctx.Done():
		return a.degraded(key, ctx.Err())
	}
}

func (a *ReputationAdapter) degraded(key NormalizedURL, cause error) ReputationSignal {
	details := "Unable to verify this URL through web reputation. Please proceed with caution."
	if errors.Is(cause, context.DeadlineExceeded) {
		details = fmt.Sprintf("Web reputation check timed out after %s. Please proceed with caution.", a.timeout)
	}

	a.logger.Warn("reputation check degraded",
		zap.String("normalizedUrl", key.String()),
		zap.Duration("timeout", a.timeout),
		zap.Error(cause),
	)

	return ReputationSignal{
		Safety:   SafetyUnknown,
		Source:   SourceReputationFallback,
		Details:  details,
		Degraded: true,
		Err:      fmt.Errorf("%w: %w", ErrReputationUnavailable, cause),
	}
}
