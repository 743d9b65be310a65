package trust

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Source labels for registry results.
const (
	SourceVerifiedDatabase = "QR Safe Verified Database"
	SourceThreatDatabase   = "QR Safe Threat Database"
)

const (
	detailsNotVerified = "This URL is not from a verified partner."
	detailsUnavailable = "The verified partner registry is currently unavailable."
	defaultThreat      = "Known scam or phishing URL"
)

// VerifiedPartner is a URL manually confirmed as legitimate.
type VerifiedPartner struct {
	CompanyName      string
	OriginalURL      string
	NormalizedURL    NormalizedURL
	VerificationDate time.Time
	Category         string
	Notes            string
}

// MaliciousURL is a URL reported as a threat.
type MaliciousURL struct {
	OriginalURL   string
	NormalizedURL NormalizedURL
	ThreatType    string
	Details       string
	ReportedDate  time.Time
	Confirmed     bool
	Source        string
}

// Registry is read-only access to the verified partner and malicious URL
// tables. Implementations match by exact key equality and return ErrNotFound
// on a miss; any other error means the registry could not answer.
type Registry interface {
	FindPartner(ctx context.Context, key NormalizedURL) (*VerifiedPartner, error)
	FindMalicious(ctx context.Context, key NormalizedURL) (*MaliciousURL, error)
}

// Lookup resolves a key against both registries.
type Lookup struct {
	registry Registry
	logger   *zap.Logger
}

// NewLookup creates a registry lookup.
func NewLookup(registry Registry, logger *zap.Logger) *Lookup {
	return &Lookup{registry: registry, logger: logger}
}

// Lookup returns the registry result for key. A registry outage is returned
// as an error wrapping ErrRegistryUnavailable, never as a "not verified" result.
// A key found in both registries is reported as malicious.
func (l *Lookup) Lookup(ctx context.Context, key NormalizedURL) (DBCheck, error) {
	partner, err := l.registry.FindPartner(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return DBCheck{}, fmt.Errorf("%w: find partner: %w", ErrRegistryUnavailable, err)
	}

	malicious, err := l.registry.FindMalicious(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return DBCheck{}, fmt.Errorf("%w: find malicious: %w", ErrRegistryUnavailable, err)
	}

	switch {
	case partner != nil && malicious != nil:
		l.logger.Error("registry consistency violation",
			zap.String("normalizedUrl", key.String()),
			zap.String("company", partner.CompanyName),
			zap.String("threatType", malicious.ThreatType),
			zap.Error(ErrRegistryConflict),
		)

		return maliciousCheck(malicious), nil
	case partner != nil:
		return partnerCheck(partner), nil
	case malicious != nil:
		return maliciousCheck(malicious), nil
	default:
		return DBCheck{
			Unknown: true,
			Source:  SourceVerifiedDatabase,
			Details: detailsNotVerified,
		}, nil
	}
}

func partnerCheck(p *VerifiedPartner) DBCheck {
	return DBCheck{
		Verified:         true,
		Source:           SourceVerifiedDatabase,
		Details:          fmt.Sprintf("Official %s QR code. Verified partner.", p.CompanyName),
		CompanyName:      p.CompanyName,
		Category:         p.Category,
		VerificationDate: p.VerificationDate,
	}
}

func maliciousCheck(m *MaliciousURL) DBCheck {
	threat := m.Details
	if threat == "" {
		threat = defaultThreat
	}

	details := "This URL has been reported as malicious."
	if m.ThreatType != "" {
		details = fmt.Sprintf("This URL has been reported as malicious (%s).", m.ThreatType)
	}

	return DBCheck{
		IsMalicious:   true,
		Source:        SourceThreatDatabase,
		Details:       details,
		ThreatType:    m.ThreatType,
		ThreatDetails: threat,
		ThreatSource:  m.Source,
	}
}

// UnavailableCheck is the degraded registry result used when Lookup failed.
func UnavailableCheck(err error) DBCheck {
	return DBCheck{
		Unavailable: true,
		Source:      SourceVerifiedDatabase,
		Details:     detailsUnavailable,
		Err:         err,
	}
}
