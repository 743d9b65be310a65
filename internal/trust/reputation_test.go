package trust_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/serroba/qr-safe/internal/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type checkerFunc func(ctx context.Context, key trust.NormalizedURL) (trust.ReputationSignal, error)

func (f checkerFunc) Check(ctx context.Context, key trust.NormalizedURL) (trust.ReputationSignal, error) {
	return f(ctx, key)
}

func TestReputationAdapter_Check(t *testing.T) {
	t.Run("passes through collaborator signal", func(t *testing.T) {
		checker := checkerFunc(func(_ context.Context, _ trust.NormalizedURL) (trust.ReputationSignal, error) {
			return trust.ReputationSignal{Safety: trust.SafetySafe, Source: "Web Search Analysis", Details: "Well known site."}, nil
		})
		adapter := trust.NewReputationAdapter(checker, time.Second, zap.NewNop())

		signal := adapter.Check(context.Background(), "https://example.com")

		assert.Equal(t, trust.SafetySafe, signal.Safety)
		assert.Equal(t, "Web Search Analysis", signal.Source)
		assert.False(t, signal.Degraded)
	})

	t.Run("degrades to unknown on error", func(t *testing.T) {
		checker := checkerFunc(func(_ context.Context, _ trust.NormalizedURL) (trust.ReputationSignal, error) {
			return trust.ReputationSignal{Safety: trust.SafetyUnsafe}, errors.New("api error")
		})
		adapter := trust.NewReputationAdapter(checker, time.Second, zap.NewNop())

		signal := adapter.Check(context.Background(), "https://example.com")

		assert.Equal(t, trust.SafetyUnknown, signal.Safety)
		assert.True(t, signal.Degraded)
		assert.Equal(t, trust.SourceReputationFallback, signal.Source)
		assert.NotEmpty(t, signal.Details)
		assert.ErrorIs(t, signal.Err, trust.ErrReputationUnavailable)
	})

	t.Run("returns unknown within the timeout when collaborator hangs", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)

		checker := checkerFunc(func(_ context.Context, _ trust.NormalizedURL) (trust.ReputationSignal, error) {
			<-release // ignores ctx on purpose

			return trust.ReputationSignal{Safety: trust.SafetySafe}, nil
		})
		adapter := trust.NewReputationAdapter(checker, 50*time.Millisecond, zap.NewNop())

		start := time.Now()
		signal := adapter.Check(context.Background(), "https://example.com")
		elapsed := time.Since(start)

		assert.Less(t, elapsed, time.Second)
		assert.Equal(t, trust.SafetyUnknown, signal.Safety)
		assert.True(t, signal.Degraded)
		assert.Contains(t, signal.Details, "timed out")
		assert.ErrorIs(t, signal.Err, context.DeadlineExceeded)
	})

	t.Run("recovers collaborator panic", func(t *testing.T) {
		checker := checkerFunc(func(_ context.Context, _ trust.NormalizedURL) (trust.ReputationSignal, error) {
			panic("boom")
		})
		adapter := trust.NewReputationAdapter(checker, time.Second, zap.NewNop())

		signal := adapter.Check(context.Background(), "https://example.com")

		require.True(t, signal.Degraded)
		assert.Equal(t, trust.SafetyUnknown, signal.Safety)
	})

	t.Run("uses default timeout when none configured", func(t *testing.T) {
		checker := checkerFunc(func(ctx context.Context, _ trust.NormalizedURL) (trust.ReputationSignal, error) {
			deadline, ok := ctx.Deadline()
			assert.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(trust.DefaultReputationTimeout), deadline, time.Second)

			return trust.ReputationSignal{}, nil
		})
		adapter := trust.NewReputationAdapter(checker, 0, zap.NewNop())

		_ = adapter.Check(context.Background(), "https://example.com")
	})
}
