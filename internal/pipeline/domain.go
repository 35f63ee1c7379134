package pipeline

import (
	"net/url"
	"strings"
)

// NormalizeDomain extracts a canonical comparable domain from a URL-like
// string: lowercase host, leading "www." stripped, no scheme/path/query.
// Malformed input yields ""; callers treat that as "no domain, discard".
func NormalizeDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	return strings.TrimSpace(host)
}

// domainsMatch reports whether two normalized domains belong together,
// tolerating prefix/subdomain variants by substring containment in either
// direction. Known precision risk: unrelated domains sharing a substring
// (lab.com vs thelab.com) match; kept to mirror the harvesting cross-check.
func domainsMatch(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}
