package crawl

import (
	"net/url"
	"strings"

	"github.com/fwojciec/docextract"
)

// NormalizeURL canonicalizes a URL for deduplication and cache lookup:
// lowercase scheme and host, default ports stripped, fragment dropped.
// Query strings and path casing are preserved.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", docextract.Errorf(docextract.EINVALID, "invalid URL %q", rawURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", docextract.Errorf(docextract.EINVALID, "URL %q is not absolute", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}
	u.Host = host
	u.Fragment = ""

	return u.String(), nil
}
