package trust

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

// NormalizedURL is the canonical form of a scanned URL. It is the unique key
// of both registries.
type NormalizedURL string

func (n NormalizedURL) String() string {
	return string(n)
}

// Host returns the host part of the key without port, or "" when the key is
// not a parseable URL.
func (n NormalizedURL) Host() string {
	u, err := url.Parse(string(n))
	if err != nil {
		return ""
	}

	return u.Hostname()
}

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// Normalize canonicalizes a raw scanned string into a registry key.
// It never fails:
//   - trims surrounding whitespace
//   - assumes https when no scheme is present
//   - lowercases the scheme and host, converting IDN hosts to punycode
//   - removes default ports (80 for http, 443 for https) and empty ports
//   - removes trailing slashes from the path, including a bare "/"
//   - removes the fragment and an empty query marker; the query itself is kept verbatim
//
// Input that still does not parse as a URL with a host is returned lowercased
// with the scheme prefix applied. Normalize is idempotent.
func Normalize(raw string) NormalizedURL {
	s := strings.TrimSpace(raw)

	switch {
	case strings.HasPrefix(s, "//"):
		s = "https:" + s
	case !schemePattern.MatchString(s):
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return NormalizedURL(strings.ToLower(s))
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = normalizeHost(u.Scheme, u.Hostname(), u.Port())

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")

	u.Fragment = ""
	u.RawFragment = ""
	u.ForceQuery = false

	return NormalizedURL(u.String())
}

func normalizeHost(scheme, hostname, port string) string {
	hostname = strings.ToLower(hostname)

	if ascii, err := idna.Lookup.ToASCII(hostname); err == nil && ascii != "" {
		hostname = ascii
	}

	if defaultPorts[scheme] == port {
		port = ""
	}

	if port != "" {
		return net.JoinHostPort(hostname, port)
	}

	if strings.Contains(hostname, ":") {
		return "[" + hostname + "]"
	}

	return hostname
}
