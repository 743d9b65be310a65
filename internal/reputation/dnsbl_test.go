package reputation_test

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/serroba/qr-safe/internal/reputation"
	"github.com/serroba/qr-safe/internal/trust"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startBlocklist serves A answers for the given names and NXDOMAIN for the rest.
func startBlocklist(t *testing.T, answers map[string]string) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			m := new(dns.Msg)
			m.SetReply(r)

			name := strings.TrimSuffix(r.Question[0].Name, ".")
			if ip, ok := answers[name]; ok {
				m.Answer = append(m.Answer, &dns.A{
					Hdr: dns.RR_Header{Name: r.Question[0].Name, Rrtype: dns.TypeA, Class: dns.ClassINET, Ttl: 60},
					A:   net.ParseIP(ip),
				})
			} else {
				m.Rcode = dns.RcodeNameError
			}

			_ = w.WriteMsg(m)
		}),
	}

	go func() { _ = srv.ActivateAndServe() }()

	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

func TestDNSBLChecker_Check(t *testing.T) {
	addr := startBlocklist(t, map[string]string{
		"evil.example.dbl.test":      "127.0.1.2",
		"refused.example.dbl.test":   "127.255.255.254",
		"refused.example.uribl.test": "127.255.255.254",
		"odd.example.dbl.test":       "10.0.0.1",
	})
	zones := []string{"dbl.test", "uribl.test"}
	checker := reputation.NewDNSBLChecker(zones, addr, zap.NewNop())
	ctx := context.Background()

	t.Run("listed domain is unsafe", func(t *testing.T) {
		signal, err := checker.Check(ctx, "https://evil.example/login")

		require.NoError(t, err)
		assert.Equal(t, trust.SafetyUnsafe, signal.Safety)
		assert.Equal(t, reputation.SourceDNSBL, signal.Source)
		assert.Contains(t, signal.Details, "dbl.test")
	})

	t.Run("unlisted domain is unknown", func(t *testing.T) {
		signal, err := checker.Check(ctx, "https://fine.example")

		require.NoError(t, err)
		assert.Equal(t, trust.SafetyUnknown, signal.Safety)
		assert.Contains(t, signal.Details, "not listed on 2 blocklists")
	})

	t.Run("answers outside 127/8 are ignored", func(t *testing.T) {
		signal, err := checker.Check(ctx, "https://odd.example")

		require.NoError(t, err)
		assert.Equal(t, trust.SafetyUnknown, signal.Safety)
	})

	t.Run("refusal on every zone is an error", func(t *testing.T) {
		_, err := checker.Check(ctx, "https://refused.example")

		require.Error(t, err)
	})

	t.Run("ip hosts are skipped", func(t *testing.T) {
		signal, err := checker.Check(ctx, "http://192.168.0.101/phish")

		require.NoError(t, err)
		assert.Equal(t, trust.SafetyUnknown, signal.Safety)
	})
}

func TestDNSBLChecker_ZoneRefusals(t *testing.T) {
	ctx := context.Background()

	t.Run("uribl and surbl refusals are not listings", func(t *testing.T) {
		addr := startBlocklist(t, map[string]string{
			"wikipedia.org.multi.uribl.com": "127.0.0.1",
			"wikipedia.org.multi.surbl.org": "127.0.0.1",
		})
		checker := reputation.NewDNSBLChecker(reputation.DefaultDNSBLZones, addr, zap.NewNop())

		signal, err := checker.Check(ctx, "https://wikipedia.org")

		require.NoError(t, err)
		assert.Equal(t, trust.SafetyUnknown, signal.Safety)
		assert.Contains(t, signal.Details, "not listed on 1 blocklists")
	})

	t.Run("refusal from every default zone is an error", func(t *testing.T) {
		addr := startBlocklist(t, map[string]string{
			"wikipedia.org.dbl.spamhaus.org": "127.255.255.254",
			"wikipedia.org.multi.uribl.com":  "127.0.0.1",
			"wikipedia.org.multi.surbl.org":  "127.0.0.1",
		})
		checker := reputation.NewDNSBLChecker(reputation.DefaultDNSBLZones, addr, zap.NewNop())

		_, err := checker.Check(ctx, "https://wikipedia.org")

		require.Error(t, err)
	})

	t.Run("real listings on uribl still count", func(t *testing.T) {
		addr := startBlocklist(t, map[string]string{
			"evil.example.multi.uribl.com": "127.0.0.2",
		})
		checker := reputation.NewDNSBLChecker(reputation.DefaultDNSBLZones, addr, zap.NewNop())

		signal, err := checker.Check(ctx, "https://evil.example")

		require.NoError(t, err)
		assert.Equal(t, trust.SafetyUnsafe, signal.Safety)
		assert.Contains(t, signal.Details, "multi.uribl.com")
	})

	t.Run("custom refusal answers", func(t *testing.T) {
		addr := startBlocklist(t, map[string]string{
			"fine.example.dbl.test": "127.0.0.9",
		})
		checker := reputation.NewDNSBLChecker([]string{"dbl.test"}, addr, zap.NewNop(),
			reputation.WithDNSBLRefusal("dbl.test", "127.0.0.9"))

		_, err := checker.Check(ctx, "https://fine.example")

		require.Error(t, err)
	})
}

func TestSystemResolver(t *testing.T) {
	host, port, err := net.SplitHostPort(reputation.SystemResolver())

	require.NoError(t, err)
	assert.NotEmpty(t, host)
	assert.NotEmpty(t, port)
}

func TestDNSBLChecker_ResolverDown(t *testing.T) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	addr := pc.LocalAddr().String()
	require.NoError(t, pc.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	checker := reputation.NewDNSBLChecker([]string{"dbl.test"}, addr, zap.NewNop())

	_, err = checker.Check(ctx, "https://evil.example")

	require.Error(t, err)
}
