package slog

import (
	"log/slog"

	"github.com/fwojciec/docextract"
)

// Ensure LoggingCache implements docextract.ExtractionCache.
var _ docextract.ExtractionCache = (*LoggingCache)(nil)

// LoggingCache wraps an ExtractionCache with debug logging of cache
// decisions and writes.
type LoggingCache struct {
	next   docextract.ExtractionCache
	logger *slog.Logger
}

// NewLoggingCache creates a new LoggingCache.
func NewLoggingCache(next docextract.ExtractionCache, logger *slog.Logger) *LoggingCache {
	return &LoggingCache{next: next, logger: logger}
}

// Decide delegates to the wrapped cache and logs the decision.
func (c *LoggingCache) Decide(url, content string) docextract.CacheDecision {
	decision := c.next.Decide(url, content)
	c.logger.Debug("cache decision", "url", url, "hit", decision.Hit, "reason", decision.Reason)
	return decision
}

// Cached delegates to the wrapped cache.
func (c *LoggingCache) Cached(url string) (*docextract.Extraction, *docextract.PageMetadata, error) {
	return c.next.Cached(url)
}

// Put delegates to the wrapped cache and logs failures.
func (c *LoggingCache) Put(url, contentHash string, extraction *docextract.Extraction, meta *docextract.PageMetadata) error {
	if err := c.next.Put(url, contentHash, extraction, meta); err != nil {
		c.logger.Warn("cache write failed", "url", url, "error", docextract.ErrorMessage(err))
		return err
	}
	c.logger.Debug("cache write", "url", url, "hash", contentHash)
	return nil
}

// Stats delegates to the wrapped cache.
func (c *LoggingCache) Stats() docextract.CacheStats {
	return c.next.Stats()
}

// Reconcile delegates to the wrapped cache and logs removals.
func (c *LoggingCache) Reconcile() (int, error) {
	removed, err := c.next.Reconcile()
	if err != nil {
		return removed, err
	}
	if removed > 0 {
		c.logger.Info("removed stale cache entries", "count", removed)
	}
	return removed, nil
}
