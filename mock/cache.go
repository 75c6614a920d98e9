package mock

import "github.com/fwojciec/docextract"

var _ docextract.ExtractionCache = (*ExtractionCache)(nil)

// ExtractionCache is a mock implementation of docextract.ExtractionCache.
type ExtractionCache struct {
	DecideFn    func(url, content string) docextract.CacheDecision
	CachedFn    func(url string) (*docextract.Extraction, *docextract.PageMetadata, error)
	PutFn       func(url, contentHash string, extraction *docextract.Extraction, meta *docextract.PageMetadata) error
	StatsFn     func() docextract.CacheStats
	ReconcileFn func() (int, error)
}

func (c *ExtractionCache) Decide(url, content string) docextract.CacheDecision {
	return c.DecideFn(url, content)
}

func (c *ExtractionCache) Cached(url string) (*docextract.Extraction, *docextract.PageMetadata, error) {
	return c.CachedFn(url)
}

func (c *ExtractionCache) Put(url, contentHash string, extraction *docextract.Extraction, meta *docextract.PageMetadata) error {
	return c.PutFn(url, contentHash, extraction, meta)
}

func (c *ExtractionCache) Stats() docextract.CacheStats {
	if c.StatsFn == nil {
		return docextract.CacheStats{}
	}
	return c.StatsFn()
}

func (c *ExtractionCache) Reconcile() (int, error) {
	if c.ReconcileFn == nil {
		return 0, nil
	}
	return c.ReconcileFn()
}
