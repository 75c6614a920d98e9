package mock

import "github.com/fwojciec/docextract"

var _ docextract.ContentExtractor = (*ContentExtractor)(nil)

// ContentExtractor is a mock implementation of docextract.ContentExtractor.
type ContentExtractor struct {
	ExtractFn func(html string) (*docextract.ExtractResult, error)
}

func (e *ContentExtractor) Extract(html string) (*docextract.ExtractResult, error) {
	return e.ExtractFn(html)
}
