package store_test

import (
	"context"
	"testing"

	"github.com/serroba/qr-safe/internal/store"
	"github.com/serroba/qr-safe/internal/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func partner(key string) trust.VerifiedPartner {
	return trust.VerifiedPartner{
		CompanyName:   "Example",
		OriginalURL:   key,
		NormalizedURL: trust.Normalize(key),
		Category:      "demo",
	}
}

func malicious(key string) trust.MaliciousURL {
	return trust.MaliciousURL{
		OriginalURL:   key,
		NormalizedURL: trust.Normalize(key),
		ThreatType:    "phishing",
		Source:        "seed",
	}
}

func TestNewMemoryRegistry(t *testing.T) {
	t.Run("finds seeded records", func(t *testing.T) {
		r, err := store.NewMemoryRegistry(
			[]trust.VerifiedPartner{partner("https://example.com")},
			[]trust.MaliciousURL{malicious("https://evil.example/login")},
		)
		require.NoError(t, err)

		got, err := r.FindPartner(context.Background(), "https://example.com")
		require.NoError(t, err)
		assert.Equal(t, "Example", got.CompanyName)

		bad, err := r.FindMalicious(context.Background(), "https://evil.example/login")
		require.NoError(t, err)
		assert.Equal(t, "phishing", bad.ThreatType)
	})

	t.Run("misses return ErrNotFound", func(t *testing.T) {
		r, err := store.NewMemoryRegistry(nil, nil)
		require.NoError(t, err)

		_, err = r.FindPartner(context.Background(), "https://nowhere.example")
		require.ErrorIs(t, err, trust.ErrNotFound)

		_, err = r.FindMalicious(context.Background(), "https://nowhere.example")
		require.ErrorIs(t, err, trust.ErrNotFound)
	})

	t.Run("rejects duplicate keys", func(t *testing.T) {
		_, err := store.NewMemoryRegistry(
			[]trust.VerifiedPartner{partner("https://example.com"), partner("HTTPS://EXAMPLE.COM/")},
			nil,
		)

		require.ErrorIs(t, err, store.ErrDuplicateKey)
	})

	t.Run("rejects keys listed in both tables", func(t *testing.T) {
		_, err := store.NewMemoryRegistry(
			[]trust.VerifiedPartner{partner("https://example.com")},
			[]trust.MaliciousURL{malicious("example.com")},
		)

		require.ErrorIs(t, err, trust.ErrRegistryConflict)
	})
}

func TestMemoryRegistry_Save(t *testing.T) {
	ctx := context.Background()
	r, err := store.NewMemoryRegistry(nil, nil)
	require.NoError(t, err)

	ok, err := r.SavePartner(ctx, partner("https://example.com"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.SavePartner(ctx, partner("https://example.com"))
	require.NoError(t, err)
	assert.False(t, ok, "existing keys are skipped")

	ok, err = r.SaveMalicious(ctx, malicious("https://example.com"))
	require.ErrorIs(t, err, trust.ErrRegistryConflict)
	assert.False(t, ok)

	conflicts, err := r.Conflicts(ctx)
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestMemoryRegistry_ServesLookup(t *testing.T) {
	r, err := store.NewMemoryRegistry(
		[]trust.VerifiedPartner{partner("https://example.com")},
		[]trust.MaliciousURL{malicious("https://evil.example")},
	)
	require.NoError(t, err)

	lookup := trust.NewLookup(r, zap.NewNop())

	check, err := lookup.Lookup(context.Background(), trust.Normalize("EXAMPLE.com/"))
	require.NoError(t, err)
	assert.True(t, check.Verified)
	assert.Equal(t, trust.SourceVerifiedDatabase, check.Source)
}
