package reputation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/serroba/qr-safe/internal/trust"
	"go.uber.org/zap"
)

// SourceWhois labels signals produced by WhoisChecker.
const SourceWhois = "WHOIS Domain Age"

// DefaultMinDomainAge is the age under which a domain is treated as unsafe.
const DefaultMinDomainAge = 30 * 24 * time.Hour

var createdLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
}

var errNoCreationDate = errors.New("whois record has no creation date")

// WhoisLookup returns the raw WHOIS record for a domain.
type WhoisLookup func(ctx context.Context, domain string) (string, error)

// WhoisChecker flags recently registered domains, a common trait of
// throwaway phishing sites.
type WhoisChecker struct {
	lookup WhoisLookup
	minAge time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// WhoisOption configures a WhoisChecker.
type WhoisOption func(*WhoisChecker)

// WithWhoisLookup replaces the network lookup.
func WithWhoisLookup(lookup WhoisLookup) WhoisOption {
	return func(c *WhoisChecker) {
		c.lookup = lookup
	}
}

// WithWhoisClock overrides the time source.
func WithWhoisClock(now func() time.Time) WhoisOption {
	return func(c *WhoisChecker) {
		c.now = now
	}
}

// NewWhoisChecker creates a checker. A non-positive minAge uses DefaultMinDomainAge.
func NewWhoisChecker(minAge, timeout time.Duration, logger *zap.Logger, opts ...WhoisOption) *WhoisChecker {
	if minAge <= 0 {
		minAge = DefaultMinDomainAge
	}

	client := whois.NewClient().SetTimeout(timeout)

	c := &WhoisChecker{
		lookup: func(_ context.Context, domain string) (string, error) {
			return client.Whois(domain)
		},
		minAge: minAge,
		now:    time.Now,
		logger: logger,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *WhoisChecker) Check(ctx context.Context, key trust.NormalizedURL) (trust.ReputationSignal, error) {
	host := key.Host()
	if host == "" || net.ParseIP(host) != nil {
		return trust.ReputationSignal{
			Safety:  trust.SafetyUnknown,
			Source:  SourceWhois,
			Details: "WHOIS age does not apply to this address.",
		}, nil
	}

	created, err := c.created(ctx, strings.TrimPrefix(host, "www."))
	if errors.Is(err, whoisparser.ErrNotFoundDomain) {
		return trust.ReputationSignal{
			Safety:  trust.SafetyUnknown,
			Source:  SourceWhois,
			Details: fmt.Sprintf("No WHOIS registration found for %s.", host),
		}, nil
	}

	if err != nil {
		return trust.ReputationSignal{}, err
	}

	age := c.now().Sub(created)
	days := int(age.Hours() / 24)

	if age < c.minAge {
		return trust.ReputationSignal{
			Safety:  trust.SafetyUnsafe,
			Source:  SourceWhois,
			Details: fmt.Sprintf("Domain %s was registered %d days ago.", host, days),
		}, nil
	}

	return trust.ReputationSignal{
		Safety:  trust.SafetyUnknown,
		Source:  SourceWhois,
		Details: fmt.Sprintf("Domain %s was registered %d days ago, on %s.", host, days, created.Format("2006-01-02")),
	}, nil
}

// created resolves the creation date, walking up to the parent domain when a
// subdomain has no dated record of its own.
func (c *WhoisChecker) created(ctx context.Context, domain string) (time.Time, error) {
	for {
		raw, err := c.lookup(ctx, domain)
		if err != nil {
			return time.Time{}, fmt.Errorf("whois %s: %w", domain, err)
		}

		info, err := whoisparser.Parse(raw)
		if err == nil {
			var created time.Time

			created, err = createdDate(info.Domain)
			if err == nil {
				return created, nil
			}
		}

		parent, ok := parentDomain(domain)
		if !ok {
			return time.Time{}, fmt.Errorf("parse whois %s: %w", domain, err)
		}

		c.logger.Debug("retrying whois with parent domain",
			zap.String("domain", domain), zap.String("parent", parent), zap.Error(err))

		domain = parent
	}
}

// createdDate prefers the date the parser already decoded.
func createdDate(d *whoisparser.Domain) (time.Time, error) {
	if d == nil {
		return time.Time{}, errNoCreationDate
	}

	if d.CreatedDateInTime != nil && !d.CreatedDateInTime.IsZero() {
		return *d.CreatedDateInTime, nil
	}

	return ParseCreatedDate(d.CreatedDate)
}

func parentDomain(domain string) (string, bool) {
	parts := strings.Split(domain, ".")
	if len(parts) <= 2 {
		return "", false
	}

	return strings.Join(parts[1:], "."), true
}

// ParseCreatedDate parses creation dates the WHOIS parser could not decode.
func ParseCreatedDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errNoCreationDate
	}

	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized creation date %q", s)
}

var _ trust.ReputationChecker = (*WhoisChecker)(nil)
