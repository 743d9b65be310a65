package trust_test

import (
	"errors"
	"testing"

	"github.com/serroba/qr-safe/internal/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_Classification(t *testing.T) {
	tests := []struct {
		name          string
		db            trust.DBCheck
		safety        trust.Safety
		expectedLabel string
		expectedLevel trust.RiskLevel
	}{
		{"verified partner with unknown reputation", trust.DBCheck{Verified: true}, trust.SafetyUnknown, trust.LabelVerifiedPartner, trust.LevelSafe},
		{"verified partner with unsafe reputation", trust.DBCheck{Verified: true}, trust.SafetyUnsafe, trust.LabelVerifiedPartner, trust.LevelSafe},
		{"malicious with safe reputation", trust.DBCheck{IsMalicious: true}, trust.SafetySafe, trust.LabelSecurityRisk, trust.LevelDanger},
		{"malicious with unknown reputation", trust.DBCheck{IsMalicious: true}, trust.SafetyUnknown, trust.LabelSecurityRisk, trust.LevelDanger},
		{"no match with safe reputation", trust.DBCheck{Unknown: true}, trust.SafetySafe, trust.LabelNoIssuesFound, trust.LevelSafe},
		{"no match with unsafe reputation", trust.DBCheck{Unknown: true}, trust.SafetyUnsafe, trust.LabelReportedIssues, trust.LevelDanger},
		{"no match with unknown reputation", trust.DBCheck{Unknown: true}, trust.SafetyUnknown, trust.LabelUseCaution, trust.LevelCaution},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := trust.Compose(tt.db, trust.ReputationSignal{Safety: tt.safety})

			assert.Equal(t, tt.expectedLabel, verdict.Risk.Label)
			assert.Equal(t, tt.expectedLevel, verdict.Risk.Level)
			assert.Equal(t, trust.ConfidenceAuthoritative, verdict.Confidence)
		})
	}
}

func TestCompose_Confidence(t *testing.T) {
	t.Run("degraded when registry is unavailable", func(t *testing.T) {
		verdict := trust.Compose(trust.UnavailableCheck(errors.New("down")), trust.ReputationSignal{Safety: trust.SafetySafe})

		assert.Equal(t, trust.ConfidenceDegraded, verdict.Confidence)
		assert.Equal(t, trust.LabelNoIssuesFound, verdict.Risk.Label)
	})

	t.Run("degraded when reputation is degraded", func(t *testing.T) {
		verdict := trust.Compose(trust.DBCheck{Verified: true}, trust.ReputationSignal{Degraded: true})

		assert.Equal(t, trust.ConfidenceDegraded, verdict.Confidence)
		assert.Equal(t, trust.LabelVerifiedPartner, verdict.Risk.Label)
	})
}

func TestSafety(t *testing.T) {
	t.Run("bool keeps unknown distinct", func(t *testing.T) {
		assert.Nil(t, trust.SafetyUnknown.Bool())
		require.NotNil(t, trust.SafetySafe.Bool())
		assert.True(t, *trust.SafetySafe.Bool())
		require.NotNil(t, trust.SafetyUnsafe.Bool())
		assert.False(t, *trust.SafetyUnsafe.Bool())
	})

	t.Run("text round trip", func(t *testing.T) {
		for _, s := range []trust.Safety{trust.SafetyUnknown, trust.SafetySafe, trust.SafetyUnsafe} {
			text, err := s.MarshalText()
			require.NoError(t, err)

			var got trust.Safety
			require.NoError(t, got.UnmarshalText(text))
			assert.Equal(t, s, got)
		}
	})

	t.Run("rejects invalid text", func(t *testing.T) {
		var s trust.Safety

		assert.Error(t, s.UnmarshalText([]byte("maybe")))
	})
}

func TestVerdict_Flags(t *testing.T) {
	verdict := trust.Compose(trust.DBCheck{IsMalicious: true}, trust.ReputationSignal{Safety: trust.SafetyUnsafe})

	flags := verdict.Flags()

	assert.False(t, flags.Verified)
	assert.True(t, flags.Malicious)
	require.NotNil(t, flags.Safe)
	assert.False(t, *flags.Safe)
}
