// Package goquery provides CSS-selector based link extraction from HTML.
package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docextract"
)

// Ensure Selector implements docextract.LinkSelector at compile time.
var _ docextract.LinkSelector = (*Selector)(nil)

// Selector extracts anchor links from HTML using universal CSS selectors
// that work across documentation frameworks. Navigation, TOC, content and
// footer areas are all searched; the crawler's scorer decides ordering.
type Selector struct{}

// NewSelector creates a new Selector.
func NewSelector() *Selector {
	return &Selector{}
}

// linkAreas are searched in order; the first occurrence of a URL wins,
// which keeps the anchor text from the most specific area.
var linkAreas = []string{
	".toc a[href], .table-of-contents a[href], .sidebar a[href], aside a[href]",
	"nav a[href], [role=\"navigation\"] a[href], .nav a[href], .menu a[href], .navbar a[href]",
	"main a[href], article a[href], .content a[href], .doc-content a[href]",
	"footer a[href], .footer a[href]",
	"body a[href]",
}

// ExtractLinks parses HTML and returns discovered links with their anchor
// text, resolved against baseURL and deduplicated by URL. Fragment-only and
// non-HTTP links (javascript:, mailto:, tel:, data:) are skipped.
func (s *Selector) ExtractLinks(html string, baseURL string) ([]docextract.DiscoveredLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, docextract.Errorf(docextract.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, docextract.Errorf(docextract.EINVALID, "failed to parse HTML: %v", err)
	}

	seen := make(map[string]bool)
	var links []docextract.DiscoveredLink

	for _, area := range linkAreas {
		doc.Find(area).Each(func(_ int, sel *goquery.Selection) {
			href, exists := sel.Attr("href")
			if !exists || href == "" || isNonHTTPLink(href) {
				return
			}

			resolved := resolveURL(base, href)
			if resolved == "" || seen[resolved] {
				return
			}
			seen[resolved] = true

			links = append(links, docextract.DiscoveredLink{
				URL:  resolved,
				Text: strings.TrimSpace(sel.Text()),
			})
		})
	}

	return links, nil
}

// isNonHTTPLink reports whether href uses a scheme that cannot be crawled.
func isNonHTTPLink(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:", "#"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// resolveURL resolves href against base, returning "" when unparsable or
// not HTTP(S).
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return ""
	}
	return resolved.String()
}
