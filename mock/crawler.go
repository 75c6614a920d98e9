package mock

import (
	"context"

	"github.com/fwojciec/docextract"
)

var _ docextract.Crawler = (*Crawler)(nil)

// Crawler is a mock implementation of docextract.Crawler.
type Crawler struct {
	CrawlFn func(ctx context.Context, seedURL string, cfg docextract.CrawlConfig, visit docextract.VisitFunc) error
}

func (c *Crawler) Crawl(ctx context.Context, seedURL string, cfg docextract.CrawlConfig, visit docextract.VisitFunc) error {
	return c.CrawlFn(ctx, seedURL, cfg, visit)
}
