package mock

import "github.com/fwojciec/docextract"

var _ docextract.LinkSelector = (*LinkSelector)(nil)

// LinkSelector is a mock implementation of docextract.LinkSelector.
type LinkSelector struct {
	ExtractLinksFn func(html string, baseURL string) ([]docextract.DiscoveredLink, error)
}

func (s *LinkSelector) ExtractLinks(html string, baseURL string) ([]docextract.DiscoveredLink, error) {
	return s.ExtractLinksFn(html, baseURL)
}
