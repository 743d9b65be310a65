package reputation

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/serroba/qr-safe/internal/trust"
	"go.uber.org/zap"
)

// SourceDNSBL labels signals produced by DNSBLChecker.
const SourceDNSBL = "Domain Blocklists"

// DefaultDNSBLZones are domain blocklists queried when none are configured.
var DefaultDNSBLZones = []string{
	"dbl.spamhaus.org",
	"multi.surbl.org",
	"multi.uribl.com",
}

// DefaultDNSBLResolver is used when no resolver is configured and
// /etc/resolv.conf cannot be read.
const DefaultDNSBLResolver = "127.0.0.1:53"

// DefaultDNSBLRefusals are the per-zone answers that mean the query was
// refused rather than listed. Spamhaus signals refusal with 127.255.255.0/24
// for every zone.
var DefaultDNSBLRefusals = map[string][]string{
	"multi.surbl.org": {"127.0.0.1"},
	"multi.uribl.com": {"127.0.0.1"},
}

var errQueryRefused = errors.New("blocklist refused query")

// SystemResolver returns the first nameserver from /etc/resolv.conf.
func SystemResolver() string {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(cfg.Servers) == 0 {
		return DefaultDNSBLResolver
	}

	return net.JoinHostPort(cfg.Servers[0], cfg.Port)
}

// DNSBLOption configures a DNSBLChecker.
type DNSBLOption func(*DNSBLChecker)

// WithDNSBLRefusal marks answers from zone that mean the query was refused.
func WithDNSBLRefusal(zone string, answers ...string) DNSBLOption {
	return func(c *DNSBLChecker) {
		for _, a := range answers {
			if ip := net.ParseIP(a); ip != nil {
				c.refusals[zone] = append(c.refusals[zone], ip)
			}
		}
	}
}

// DNSBLChecker looks up the URL's domain in DNS blocklists. A listing makes
// the URL unsafe; not being listed is not evidence of safety.
type DNSBLChecker struct {
	zones    []string
	refusals map[string][]net.IP
	resolver string
	client   *dns.Client
	logger   *zap.Logger
}

// NewDNSBLChecker creates a checker querying zones through resolver
// (host:port). An empty resolver uses the system one.
func NewDNSBLChecker(zones []string, resolver string, logger *zap.Logger, opts ...DNSBLOption) *DNSBLChecker {
	if len(zones) == 0 {
		zones = DefaultDNSBLZones
	}

	if resolver == "" {
		resolver = SystemResolver()
	}

	c := &DNSBLChecker{
		zones:    zones,
		refusals: make(map[string][]net.IP),
		resolver: resolver,
		client:   &dns.Client{Net: "udp", Timeout: 2 * time.Second},
		logger:   logger,
	}

	for zone, answers := range DefaultDNSBLRefusals {
		WithDNSBLRefusal(zone, answers...)(c)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *DNSBLChecker) Check(ctx context.Context, key trust.NormalizedURL) (trust.ReputationSignal, error) {
	host := key.Host()
	if host == "" || net.ParseIP(host) != nil {
		return trust.ReputationSignal{
			Safety:  trust.SafetyUnknown,
			Source:  SourceDNSBL,
			Details: "Domain blocklists do not apply to this address.",
		}, nil
	}

	var (
		listed  []string
		failed  int
		lastErr error
	)

	for _, zone := range c.zones {
		hit, err := c.query(ctx, zone, host+"."+zone)
		if err != nil {
			failed++
			lastErr = err

			c.logger.Warn("blocklist query failed", zap.String("zone", zone), zap.String("host", host), zap.Error(err))

			continue
		}

		if hit {
			listed = append(listed, zone)
		}
	}

	if failed == len(c.zones) {
		return trust.ReputationSignal{}, fmt.Errorf("all %d blocklist queries failed: %w", failed, lastErr)
	}

	if len(listed) > 0 {
		return trust.ReputationSignal{
			Safety:  trust.SafetyUnsafe,
			Source:  SourceDNSBL,
			Details: fmt.Sprintf("Domain %s is listed on %s.", host, strings.Join(listed, ", ")),
		}, nil
	}

	return trust.ReputationSignal{
		Safety:  trust.SafetyUnknown,
		Source:  SourceDNSBL,
		Details: fmt.Sprintf("Domain %s is not listed on %d blocklists.", host, len(c.zones)-failed),
	}, nil
}

// query reports whether name resolves to a listing answer in zone.
func (c *DNSBLChecker) query(ctx context.Context, zone, name string) (bool, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(name), dns.TypeA)

	in, _, err := c.client.ExchangeContext(ctx, msg, c.resolver)
	if err != nil {
		return false, err
	}

	switch in.Rcode {
	case dns.RcodeNameError:
		return false, nil
	case dns.RcodeSuccess:
	default:
		return false, fmt.Errorf("%s: %s", name, dns.RcodeToString[in.Rcode])
	}

	for _, rr := range in.Answer {
		a, ok := rr.(*dns.A)
		if !ok {
			continue
		}

		switch ip := a.A.To4(); {
		case ip == nil || ip[0] != 127:
		case ip[1] == 255 && ip[2] == 255, c.refused(zone, ip):
			return false, fmt.Errorf("%w: %s answered %s", errQueryRefused, name, ip)
		default:
			return true, nil
		}
	}

	return false, nil
}

func (c *DNSBLChecker) refused(zone string, ip net.IP) bool {
	for _, r := range c.refusals[zone] {
		if r.Equal(ip) {
			return true
		}
	}

	return false
}

var _ trust.ReputationChecker = (*DNSBLChecker)(nil)
