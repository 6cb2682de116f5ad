package engines

import (
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// CanonicalURL normalizes a candidate URL so the same page reported by two
// engines deduplicates to one entry. Host is lowercased, the fragment and
// default ports are dropped, and a bare trailing slash is removed.
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSpace(raw)
	}

	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	if u.Scheme != "" {
		u.Scheme = strings.ToLower(u.Scheme)
	}

	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	if u.Path == "/" && u.RawQuery == "" {
		u.Path = ""
	}
	return u.String()
}

// NormalizeTitle collapses whitespace and applies Unicode NFC so titles
// scraped from different engines compare cleanly.
func NormalizeTitle(title string) string {
	return norm.NFC.String(strings.Join(strings.Fields(title), " "))
}
