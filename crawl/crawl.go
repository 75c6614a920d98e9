// Package crawl provides a bounded, best-first deep crawler for
// documentation sites. Discovered links are ranked by a keyword-weighted
// score, deduplicated through a Bloom-filter frontier, and rendered to
// cleaned Markdown before being yielded to the caller.
package crawl

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/fwojciec/docextract"
)

// Frontier sizing for deduplication.
const (
	frontierExpectedURLs      = 10000
	frontierFalsePositiveRate = 0.01
)

// Compile-time interface verification.
var _ docextract.Crawler = (*Crawler)(nil)

// Crawler implements docextract.Crawler. Fetcher, Extractor, Converter and
// Links are required; Sitemaps and RateLimiter are optional.
type Crawler struct {
	Fetcher     docextract.Fetcher
	Extractor   docextract.ContentExtractor
	Converter   docextract.Converter
	Links       docextract.LinkSelector
	Sitemaps    docextract.SitemapService
	RateLimiter docextract.DomainLimiter
	RetryDelays []time.Duration
}

// Crawl walks the site from seedURL in best-first order and yields at most
// cfg.MaxPages pages to visit. The seed has depth 0; a page at depth d is
// expanded only when d+1 < cfg.MaxDepth. Page-level fetch failures are
// dropped without retrying beyond the configured delays.
func (c *Crawler) Crawl(ctx context.Context, seedURL string, cfg docextract.CrawlConfig, visit docextract.VisitFunc) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	seed, err := NormalizeURL(seedURL)
	if err != nil {
		return err
	}
	parsedSeed, err := url.Parse(seed)
	if err != nil {
		return docextract.Errorf(docextract.EINVALID, "invalid seed URL %q", seedURL)
	}

	scorer := &Scorer{Keywords: cfg.Keywords, Weight: cfg.KeywordWeight}
	frontier := NewFrontier(frontierExpectedURLs, frontierFalsePositiveRate)

	seq := 0
	push := func(rawURL, text string, depth int) {
		link := docextract.DiscoveredLink{
			URL:   rawURL,
			Text:  text,
			Depth: depth,
			Score: scorer.Score(rawURL, text, depth),
			Seq:   seq,
		}
		if frontier.Push(link) {
			seq++
		}
	}

	push(seed, "", 0)
	if cfg.MaxDepth > 1 {
		c.seedFromSitemap(ctx, parsedSeed, cfg, push)
	}

	delays := c.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}

	yielded := 0
	for yielded < cfg.MaxPages {
		link, ok := frontier.Pop()
		if !ok {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		linkURL, err := url.Parse(link.URL)
		if err != nil {
			continue
		}
		if c.RateLimiter != nil {
			if err := c.RateLimiter.Wait(ctx, linkURL.Host); err != nil {
				return err
			}
		}

		html, err := FetchWithRetryDelays(ctx, link.URL, c.Fetcher.Fetch, delays)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue // page-level fetch failure, dropped
		}

		// Links land at depth+1; depths at or beyond MaxDepth are never
		// enqueued, so MaxDepth=1 yields the seed alone.
		if link.Depth+1 < cfg.MaxDepth {
			c.expand(html, link, parsedSeed, cfg, push)
		}

		page, err := c.renderPage(html, link)
		if err != nil {
			continue
		}

		if err := visit(page); err != nil {
			return err
		}
		yielded++
	}

	return nil
}

// seedFromSitemap pushes in-scope sitemap URLs into the frontier at depth 1.
// Sitemap discovery failures are ignored; the recursive crawl covers them.
func (c *Crawler) seedFromSitemap(ctx context.Context, seed *url.URL, cfg docextract.CrawlConfig, push func(rawURL, text string, depth int)) {
	if c.Sitemaps == nil {
		return
	}
	urls, err := c.Sitemaps.DiscoverURLs(ctx, seed.String())
	if err != nil {
		return
	}
	for _, u := range urls {
		parsed, err := url.Parse(u)
		if err != nil {
			continue
		}
		if !cfg.IncludeExternal && !sameRegisteredDomain(seed, parsed) {
			continue
		}
		push(u, "", 1)
	}
}

// expand extracts links from a fetched page and queues the in-scope ones at
// the next depth.
func (c *Crawler) expand(html string, from docextract.DiscoveredLink, seed *url.URL, cfg docextract.CrawlConfig, push func(rawURL, text string, depth int)) {
	links, err := c.Links.ExtractLinks(html, from.URL)
	if err != nil {
		return
	}
	for _, discovered := range links {
		parsed, err := url.Parse(discovered.URL)
		if err != nil {
			continue
		}
		if !cfg.IncludeExternal && !sameRegisteredDomain(seed, parsed) {
			continue
		}
		push(discovered.URL, discovered.Text, from.Depth+1)
	}
}

// renderPage runs the content pipeline for a fetched page: boilerplate
// removal, then Markdown conversion. A page whose main content is empty is
// still yielded; downstream stages surface it as an extraction error.
func (c *Crawler) renderPage(html string, link docextract.DiscoveredLink) (*docextract.Page, error) {
	extracted, err := c.Extractor.Extract(html)
	if err != nil {
		return nil, err
	}

	var markdown string
	if strings.TrimSpace(extracted.ContentHTML) != "" {
		markdown, err = c.Converter.Convert(extracted.ContentHTML)
		if err != nil {
			return nil, err
		}
	}

	return &docextract.Page{
		URL:       link.URL,
		Title:     extracted.Title,
		Content:   markdown,
		Depth:     link.Depth,
		FetchedAt: time.Now().UTC(),
	}, nil
}
