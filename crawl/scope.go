package crawl

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// registeredDomain returns the eTLD+1 for a host, falling back to the bare
// host when the public suffix list has no answer (e.g. "localhost" or IPs).
func registeredDomain(host string) string {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, ":"); i != -1 {
		host = host[:i]
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// sameRegisteredDomain reports whether two URLs share a registered domain.
// Subdomains of the seed's site stay in scope.
func sameRegisteredDomain(a, b *url.URL) bool {
	return registeredDomain(a.Host) == registeredDomain(b.Host)
}
