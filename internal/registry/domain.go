package registry

import (
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

// CanonicalDomain reduces a URL or hostname to the registrable form stored
// in the registry: lowercase, punycode, no scheme, no www. prefix, no port.
// Returns "" for input with no usable host.
func CanonicalDomain(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	host := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return ""
		}
		host = u.Host
	} else if i := strings.IndexAny(raw, "/?#"); i >= 0 {
		host = raw[:i]
	}

	if i := strings.LastIndex(host, ":"); i > strings.LastIndex(host, "]") {
		host = host[:i]
	}
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	host = strings.TrimPrefix(host, "www.")

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return host
	}
	return ascii
}

// reasonFor maps an abuse category to the flag reason surfaced in results.
// Unknown categories still flag, with a generic reason.
func reasonFor(category string) string {
	switch strings.ToLower(strings.TrimSpace(category)) {
	case "ncii":
		return "Known NCII site"
	case "deepfake":
		return "Known deepfake distribution site"
	case "scraper":
		return "Known face-scraping aggregator"
	case "doxxing":
		return "Known doxxing site"
	case "impersonation":
		return "Known impersonation marketplace"
	default:
		return "Listed in threat domain registry"
	}
}
