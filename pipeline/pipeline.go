// Package pipeline orchestrates the documentation extraction run:
// crawl → optional relevance filter → cache decision → LM extraction →
// cache write → output. Stages run over bounded worker pools; the final
// result sequence preserves the crawler's yield order.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docextract"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Pool and deadline defaults. Extraction runs narrower than filtering
// because its prompts are larger and slower.
const (
	DefaultFilterConcurrency  = 8
	DefaultExtractConcurrency = 4
	DefaultPageTimeout        = 180 * time.Second
)

// Pipeline coordinates one extraction run. Crawler, Extractor, Cache and
// Writer are required; Filter is consulted only when the run options enable
// filtering.
type Pipeline struct {
	Crawler   docextract.Crawler
	Filter    *Filter
	Extractor *Extractor
	Cache     docextract.ExtractionCache
	Writer    docextract.OutputWriter

	CrawlConfig docextract.CrawlConfig

	FilterConcurrency  int
	ExtractConcurrency int
	PageTimeout        time.Duration

	Logger *slog.Logger
}

// Run executes the pipeline. Configuration is validated before any fetch.
// On cancellation the partial results gathered so far are returned along
// with the context error; cache writes already made remain valid.
func (p *Pipeline) Run(ctx context.Context, opts docextract.RunOptions) (*docextract.RunSummary, []*docextract.PageResult, error) {
	if err := p.validate(opts); err != nil {
		return nil, nil, err
	}

	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	started := time.Now().UTC()
	summary := &docextract.RunSummary{
		RunID:     uuid.NewString(),
		SeedURL:   opts.SeedURL,
		StartedAt: started,
	}

	// Fetch completes in full before filtering begins.
	results, err := p.fetchAll(ctx, opts.SeedURL)
	summary.TotalFetched = len(results)
	if err != nil {
		p.finish(summary, results, started)
		return summary, results, err
	}
	logger.Info("crawl finished", "pages", len(results))

	if err := p.filterAll(ctx, opts, results); err != nil {
		p.finish(summary, results, started)
		return summary, results, err
	}

	if err := p.extractAll(ctx, results, logger); err != nil {
		p.finish(summary, results, started)
		return summary, results, err
	}

	p.persist(ctx, results, logger)
	p.finish(summary, results, started)

	// The summary is written even for empty runs so every run leaves a
	// discoverable record.
	if err := p.Writer.WriteSummary(context.WithoutCancel(ctx), summary, results); err != nil {
		return summary, results, err
	}

	return summary, results, nil
}

// validate checks run options and component configuration before any
// network activity.
func (p *Pipeline) validate(opts docextract.RunOptions) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if err := p.CrawlConfig.Validate(); err != nil {
		return err
	}
	if err := p.Extractor.Config.Validate(); err != nil {
		return err
	}
	if opts.FilteringEnabled {
		if p.Filter == nil {
			return docextract.Errorf(docextract.EINVALID, "filtering enabled but no filter configured")
		}
		if err := p.Filter.Config.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// fetchAll drains the crawler, collecting pages in yield order.
func (p *Pipeline) fetchAll(ctx context.Context, seedURL string) ([]*docextract.PageResult, error) {
	var results []*docextract.PageResult
	err := p.Crawler.Crawl(ctx, seedURL, p.CrawlConfig, func(page *docextract.Page) error {
		results = append(results, &docextract.PageResult{
			Page:  page,
			State: docextract.StateFetched,
		})
		return nil
	})
	return results, err
}

// filterAll runs relevance decisions over the filter pool, preserving
// order by writing into the pre-sized results slice. With filtering
// disabled every page is included and no LM call is issued.
func (p *Pipeline) filterAll(ctx context.Context, opts docextract.RunOptions, results []*docextract.PageResult) error {
	if !opts.FilteringEnabled {
		for _, result := range results {
			result.Included = true
		}
		return nil
	}

	concurrency := p.FilterConcurrency
	if concurrency <= 0 {
		concurrency = DefaultFilterConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, result := range results {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			included, explanation := p.Filter.Decide(gctx, result.Page)
			result.Included = included
			result.DecisionExplanation = explanation
			if !included {
				result.State = docextract.StateExcluded
			}
			return nil
		})
	}

	return g.Wait()
}

// extractAll processes included pages over the extraction pool: cache
// decision, then LM extraction and cache write on a miss. Each page gets
// an overall deadline across this work; its earlier filter call is not
// counted against that deadline.
func (p *Pipeline) extractAll(ctx context.Context, results []*docextract.PageResult, logger *slog.Logger) error {
	concurrency := p.ExtractConcurrency
	if concurrency <= 0 {
		concurrency = DefaultExtractConcurrency
	}
	pageTimeout := p.PageTimeout
	if pageTimeout <= 0 {
		pageTimeout = DefaultPageTimeout
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, result := range results {
		if !result.Included {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pageCtx, cancel := context.WithTimeout(gctx, pageTimeout)
			defer cancel()
			p.processPage(pageCtx, result, logger)
			return nil
		})
	}

	return g.Wait()
}

// processPage runs the cache decision and, on a miss, extraction and the
// cache write for one included page.
func (p *Pipeline) processPage(ctx context.Context, result *docextract.PageResult, logger *slog.Logger) {
	page := result.Page
	decision := p.Cache.Decide(page.URL, page.Content)

	if decision.Hit {
		extraction, _, err := p.Cache.Cached(page.URL)
		if err == nil {
			result.State = docextract.StateCacheHit
			result.FromCache = true
			result.Extraction = extraction
			logger.Debug("cache hit", "url", page.URL)
			return
		}
		// A hit whose files went missing degrades to a miss.
		logger.Warn("cache hit unreadable, re-extracting", "url", page.URL, "error", err)
	} else {
		logger.Debug("cache miss", "url", page.URL, "reason", decision.Reason)
	}

	extraction, err := p.Extractor.Extract(ctx, page)
	if err != nil {
		result.State = docextract.StateExtractionFailed
		result.Err = err
		logger.Warn("extraction failed", "url", page.URL, "error", docextract.ErrorMessage(err))
		return
	}

	meta := &docextract.PageMetadata{
		URL:                 page.URL,
		Title:               page.Title,
		Depth:               page.Depth,
		Included:            true,
		DecisionExplanation: result.DecisionExplanation,
		CrawledAt:           page.FetchedAt,
	}

	if err := p.Cache.Put(page.URL, decision.ContentHash, extraction, meta); err != nil {
		result.State = docextract.StateFailed
		result.Err = err
		logger.Warn("cache write failed", "url", page.URL, "error", docextract.ErrorMessage(err))
		return
	}

	result.State = docextract.StateExtracted
	result.Extraction = extraction
}

// persist writes output files for every page that carries an extraction,
// in crawler yield order.
func (p *Pipeline) persist(ctx context.Context, results []*docextract.PageResult, logger *slog.Logger) {
	for _, result := range results {
		if result.Extraction == nil {
			continue
		}
		if err := p.Writer.WritePage(context.WithoutCancel(ctx), result); err != nil {
			result.State = docextract.StateFailed
			result.Err = err
			logger.Warn("output write failed", "url", result.Page.URL, "error", docextract.ErrorMessage(err))
			continue
		}
		result.State = docextract.StatePersisted
	}
}

// finish fills the summary counters from the gathered results.
func (p *Pipeline) finish(summary *docextract.RunSummary, results []*docextract.PageResult, started time.Time) {
	summary.Duration = time.Since(started)

	for _, result := range results {
		switch {
		case result.Included:
			summary.FilteredIn++
		case result.State == docextract.StateExcluded:
			summary.FilteredOut++
		}

		switch {
		case result.FromCache:
			summary.CacheHits++
		case result.State == docextract.StateExtracted,
			result.State == docextract.StateExtractionFailed,
			result.State == docextract.StateFailed,
			result.State == docextract.StatePersisted:
			summary.CacheMisses++
		}

		if result.Extraction != nil && !result.FromCache {
			summary.Extracted++
		}
		if result.State == docextract.StateExtractionFailed || result.State == docextract.StateFailed {
			summary.Failed++
		}
	}

	summary.ExtractCalls = p.Extractor.Calls()
	summary.Usage = p.Extractor.Usage()
	if p.Filter != nil {
		summary.FilterCalls = p.Filter.Calls()
		filterUsage := p.Filter.Usage()
		summary.Usage.Add(filterUsage)
	}
}
