// Package registry loads and validates the seed records of the verified
// partner and malicious URL registries.
package registry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/serroba/qr-safe/internal/trust"
	"gopkg.in/yaml.v3"
)

// Threat types.
const (
	ThreatPhishing = "phishing"
	ThreatMalware  = "malware"
	ThreatScam     = "scam"
)

//go:embed fixtures.yaml
var defaultFixtures []byte

// ErrInvalidFixtures is returned when fixtures fail validation or break the
// registry invariants.
var ErrInvalidFixtures = errors.New("invalid registry fixtures")

// Fixtures is the seed file layout.
type Fixtures struct {
	Partners  []PartnerFixture   `yaml:"partners" validate:"dive"`
	Malicious []MaliciousFixture `yaml:"malicious" validate:"dive"`
}

// PartnerFixture is one verified partner. Company defaults to the URL host
// without "www.".
type PartnerFixture struct {
	URL      string `yaml:"url" validate:"required"`
	Company  string `yaml:"company"`
	Category string `yaml:"category" validate:"required"`
	Notes    string `yaml:"notes"`
}

// MaliciousFixture is one reported URL. ThreatType is inferred from the URL
// when empty.
type MaliciousFixture struct {
	URL        string `yaml:"url" validate:"required"`
	ThreatType string `yaml:"threat_type" validate:"omitempty,oneof=phishing malware scam"`
	Details    string `yaml:"details"`
	Source     string `yaml:"source" validate:"required"`
}

// Load decodes and validates fixtures. Unknown fields are rejected.
func Load(r io.Reader) (*Fixtures, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixtures
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode: %w", ErrInvalidFixtures, err)
	}

	if err := validator.New().Struct(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixtures, err)
	}

	return &f, nil
}

// Default returns the embedded seed fixtures.
func Default() (*Fixtures, error) {
	return Load(bytes.NewReader(defaultFixtures))
}

// Records converts fixtures to registry records stamped with now. It fails
// when two fixtures normalize to the same key in one table or when a key is
// listed as both partner and malicious.
func (f *Fixtures) Records(now time.Time) ([]trust.VerifiedPartner, []trust.MaliciousURL, error) {
	date := now.UTC().Truncate(24 * time.Hour)

	partners := make([]trust.VerifiedPartner, 0, len(f.Partners))
	partnerKeys := make(map[trust.NormalizedURL]string, len(f.Partners))

	for _, p := range f.Partners {
		key := trust.Normalize(p.URL)
		if prev, ok := partnerKeys[key]; ok {
			return nil, nil, fmt.Errorf("%w: partner %s duplicates %s", ErrInvalidFixtures, p.URL, prev)
		}

		partnerKeys[key] = p.URL

		company := p.Company
		if company == "" {
			company = CompanyName(key)
		}

		partners = append(partners, trust.VerifiedPartner{
			CompanyName:      company,
			OriginalURL:      p.URL,
			NormalizedURL:    key,
			VerificationDate: date,
			Category:         p.Category,
			Notes:            p.Notes,
		})
	}

	malicious := make([]trust.MaliciousURL, 0, len(f.Malicious))
	maliciousKeys := make(map[trust.NormalizedURL]string, len(f.Malicious))

	for _, m := range f.Malicious {
		key := trust.Normalize(m.URL)
		if _, ok := partnerKeys[key]; ok {
			return nil, nil, fmt.Errorf("%w: %w: %s", ErrInvalidFixtures, trust.ErrRegistryConflict, key)
		}

		if prev, ok := maliciousKeys[key]; ok {
			return nil, nil, fmt.Errorf("%w: malicious %s duplicates %s", ErrInvalidFixtures, m.URL, prev)
		}

		maliciousKeys[key] = m.URL

		threat := m.ThreatType
		if threat == "" {
			threat = InferThreatType(m.URL)
		}

		malicious = append(malicious, trust.MaliciousURL{
			OriginalURL:   m.URL,
			NormalizedURL: key,
			ThreatType:    threat,
			Details:       m.Details,
			ReportedDate:  date,
			Confirmed:     true,
			Source:        m.Source,
		})
	}

	return partners, malicious, nil
}

// InferThreatType guesses a threat type from URL wording.
func InferThreatType(raw string) string {
	lower := strings.ToLower(raw)

	switch {
	case strings.Contains(lower, "download"), strings.Contains(lower, ".exe"):
		return ThreatMalware
	case strings.Contains(lower, "free"), strings.Contains(lower, "gift"), strings.Contains(lower, "claim"):
		return ThreatScam
	default:
		return ThreatPhishing
	}
}

// CompanyName derives a display name from the key's host.
func CompanyName(key trust.NormalizedURL) string {
	host := key.Host()
	if host == "" {
		return key.String()
	}

	return strings.TrimPrefix(host, "www.")
}
