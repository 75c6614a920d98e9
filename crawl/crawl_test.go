package crawl_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fwojciec/docextract"
	"github.com/fwojciec/docextract/crawl"
	"github.com/fwojciec/docextract/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSite builds a Crawler over an in-memory site: urls maps URL → HTML,
// links maps URL → outgoing links. Content extraction and conversion pass
// the HTML through unchanged.
func fakeSite(urls map[string]string, links map[string][]docextract.DiscoveredLink) *crawl.Crawler {
	return &crawl.Crawler{
		Fetcher: &mock.Fetcher{
			FetchFn: func(_ context.Context, url string) (string, error) {
				html, ok := urls[url]
				if !ok {
					return "", fmt.Errorf("HTTP 404 for %s", url)
				}
				return html, nil
			},
		},
		Extractor: &mock.ContentExtractor{
			ExtractFn: func(html string) (*docextract.ExtractResult, error) {
				return &docextract.ExtractResult{Title: "t:" + html, ContentHTML: html}, nil
			},
		},
		Converter: &mock.Converter{
			ConvertFn: func(html string) (string, error) { return html, nil },
		},
		Links: &mock.LinkSelector{
			ExtractLinksFn: func(_ string, baseURL string) ([]docextract.DiscoveredLink, error) {
				return links[baseURL], nil
			},
		},
		RetryDelays: []time.Duration{time.Millisecond},
	}
}

func collect(t *testing.T, c *crawl.Crawler, seed string, cfg docextract.CrawlConfig) []*docextract.Page {
	t.Helper()
	var pages []*docextract.Page
	err := c.Crawl(context.Background(), seed, cfg, func(page *docextract.Page) error {
		pages = append(pages, page)
		return nil
	})
	require.NoError(t, err)
	return pages
}

func TestCrawler_max_pages_one_yields_seed_only(t *testing.T) {
	t.Parallel()

	c := fakeSite(
		map[string]string{
			"https://example.test/docs":   "seed",
			"https://example.test/docs/a": "a",
		},
		map[string][]docextract.DiscoveredLink{
			"https://example.test/docs": {{URL: "https://example.test/docs/a"}},
		},
	)

	pages := collect(t, c, "https://example.test/docs", docextract.CrawlConfig{
		MaxDepth: 3, MaxPages: 1, KeywordWeight: 0.7,
	})

	require.Len(t, pages, 1)
	assert.Equal(t, "https://example.test/docs", pages[0].URL)
	assert.Equal(t, 0, pages[0].Depth)
}

func TestCrawler_max_depth_one_yields_seed_only(t *testing.T) {
	t.Parallel()

	c := fakeSite(
		map[string]string{
			"https://example.test/docs":   "seed",
			"https://example.test/docs/a": "a",
		},
		map[string][]docextract.DiscoveredLink{
			"https://example.test/docs": {{URL: "https://example.test/docs/a"}},
		},
	)

	pages := collect(t, c, "https://example.test/docs", docextract.CrawlConfig{
		MaxDepth: 1, MaxPages: 10, KeywordWeight: 0.7,
	})

	require.Len(t, pages, 1)
	assert.Equal(t, "https://example.test/docs", pages[0].URL)
}

func TestCrawler_follows_links_to_max_depth(t *testing.T) {
	t.Parallel()

	c := fakeSite(
		map[string]string{
			"https://example.test/docs":     "seed",
			"https://example.test/docs/a":   "a",
			"https://example.test/docs/a/b": "b",
		},
		map[string][]docextract.DiscoveredLink{
			"https://example.test/docs":   {{URL: "https://example.test/docs/a"}},
			"https://example.test/docs/a": {{URL: "https://example.test/docs/a/b"}},
		},
	)

	pages := collect(t, c, "https://example.test/docs", docextract.CrawlConfig{
		MaxDepth: 2, MaxPages: 10, KeywordWeight: 0.7,
	})

	// Depth 2 (/docs/a/b) is beyond MaxDepth=2 (depths 0 and 1 only).
	require.Len(t, pages, 2)
	assert.Equal(t, "https://example.test/docs", pages[0].URL)
	assert.Equal(t, "https://example.test/docs/a", pages[1].URL)
	assert.Equal(t, 1, pages[1].Depth)
}

func TestCrawler_external_links_not_followed_by_default(t *testing.T) {
	t.Parallel()

	c := fakeSite(
		map[string]string{
			"https://example.test/docs": "seed",
			"https://other.test/page":   "external",
			"https://docs.example.test/guide": "subdomain",
		},
		map[string][]docextract.DiscoveredLink{
			"https://example.test/docs": {
				{URL: "https://other.test/page"},
				{URL: "https://docs.example.test/guide"},
			},
		},
	)

	pages := collect(t, c, "https://example.test/docs", docextract.CrawlConfig{
		MaxDepth: 3, MaxPages: 10, KeywordWeight: 0.7,
	})

	urls := make([]string, 0, len(pages))
	for _, p := range pages {
		urls = append(urls, p.URL)
	}

	assert.NotContains(t, urls, "https://other.test/page", "different registered domain is out of scope")
	assert.Contains(t, urls, "https://docs.example.test/guide", "subdomains stay in scope")
}

func TestCrawler_include_external_follows_other_domains(t *testing.T) {
	t.Parallel()

	c := fakeSite(
		map[string]string{
			"https://example.test/docs": "seed",
			"https://other.test/page":   "external",
		},
		map[string][]docextract.DiscoveredLink{
			"https://example.test/docs": {{URL: "https://other.test/page"}},
		},
	)

	pages := collect(t, c, "https://example.test/docs", docextract.CrawlConfig{
		MaxDepth: 3, MaxPages: 10, IncludeExternal: true, KeywordWeight: 0.7,
	})

	require.Len(t, pages, 2)
	assert.Equal(t, "https://other.test/page", pages[1].URL)
}

func TestCrawler_keyword_scoring_orders_the_crawl(t *testing.T) {
	t.Parallel()

	c := fakeSite(
		map[string]string{
			"https://example.test/docs":        "seed",
			"https://example.test/blog/news":   "news",
			"https://example.test/api/intro":   "api",
		},
		map[string][]docextract.DiscoveredLink{
			"https://example.test/docs": {
				{URL: "https://example.test/blog/news", Text: "Company News"},
				{URL: "https://example.test/api/intro", Text: "API Introduction"},
			},
		},
	)

	pages := collect(t, c, "https://example.test/docs", docextract.CrawlConfig{
		MaxDepth: 2, MaxPages: 10,
		Keywords:      []string{"api"},
		KeywordWeight: 0.7,
	})

	require.Len(t, pages, 3)
	assert.Equal(t, "https://example.test/api/intro", pages[1].URL, "keyword match crawls first")
	assert.Equal(t, "https://example.test/blog/news", pages[2].URL)
}

func TestCrawler_drops_failed_fetches_silently(t *testing.T) {
	t.Parallel()

	c := fakeSite(
		map[string]string{
			"https://example.test/docs":   "seed",
			"https://example.test/docs/b": "b",
			// /docs/a missing: fetch fails
		},
		map[string][]docextract.DiscoveredLink{
			"https://example.test/docs": {
				{URL: "https://example.test/docs/a"},
				{URL: "https://example.test/docs/b"},
			},
		},
	)

	pages := collect(t, c, "https://example.test/docs", docextract.CrawlConfig{
		MaxDepth: 2, MaxPages: 10, KeywordWeight: 0.7,
	})

	require.Len(t, pages, 2)
	assert.Equal(t, "https://example.test/docs/b", pages[1].URL)
}

func TestCrawler_sitemap_urls_seed_the_frontier(t *testing.T) {
	t.Parallel()

	c := fakeSite(
		map[string]string{
			"https://example.test/docs":       "seed",
			"https://example.test/docs/guide": "guide",
		},
		nil,
	)
	c.Sitemaps = &mock.SitemapService{
		DiscoverURLsFn: func(_ context.Context, _ string) ([]string, error) {
			return []string{
				"https://example.test/docs/guide",
				"https://other.test/out-of-scope",
			}, nil
		},
	}

	pages := collect(t, c, "https://example.test/docs", docextract.CrawlConfig{
		MaxDepth: 2, MaxPages: 10, KeywordWeight: 0.7,
	})

	require.Len(t, pages, 2)
	assert.Equal(t, "https://example.test/docs/guide", pages[1].URL)
	assert.Equal(t, 1, pages[1].Depth)
}

func TestCrawler_visit_error_stops_the_crawl(t *testing.T) {
	t.Parallel()

	c := fakeSite(
		map[string]string{"https://example.test/docs": "seed"},
		nil,
	)

	err := c.Crawl(context.Background(), "https://example.test/docs", docextract.CrawlConfig{
		MaxDepth: 2, MaxPages: 10, KeywordWeight: 0.7,
	}, func(page *docextract.Page) error {
		return assert.AnError
	})

	assert.ErrorIs(t, err, assert.AnError)
}

func TestCrawler_invalid_config_rejected_before_fetching(t *testing.T) {
	t.Parallel()

	fetched := false
	c := fakeSite(map[string]string{}, nil)
	c.Fetcher = &mock.Fetcher{
		FetchFn: func(_ context.Context, _ string) (string, error) {
			fetched = true
			return "", nil
		},
	}

	err := c.Crawl(context.Background(), "https://example.test/docs", docextract.CrawlConfig{
		MaxDepth: 0, MaxPages: 10,
	}, func(*docextract.Page) error { return nil })

	require.Error(t, err)
	assert.Equal(t, docextract.EINVALID, docextract.ErrorCode(err))
	assert.False(t, fetched, "no fetch before config validation")
}
