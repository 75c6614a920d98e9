// Package fs provides file-based storage: the content-addressed extraction
// cache and the run output writer.
package fs

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fwojciec/docextract"
)

// Cache directory layout.
const (
	indexFileName  = "content_index.json"
	extractionsDir = "extractions"
	metadataDir    = "metadata"
)

// indexEntry is one record in content_index.json, keyed by URL.
type indexEntry struct {
	ContentHash    string `json:"content_hash"`
	LastExtracted  string `json:"last_extracted"`
	ExtractionFile string `json:"extraction_file"`
	MetadataFile   string `json:"metadata_file"`
	URLHash        string `json:"url_hash"`
}

// Ensure Cache implements docextract.ExtractionCache at compile time.
var _ docextract.ExtractionCache = (*Cache)(nil)

// Cache is a content-addressed extraction store. The in-memory index maps
// URL → content hash and file references; extraction and metadata JSON
// files live under the base directory. One pipeline owns a Cache at a time;
// the index file is rewritten atomically via a temp file and rename.
type Cache struct {
	mu      sync.Mutex
	baseDir string
	index   map[string]indexEntry
	hits    int
	misses  int
}

// NewCache opens (or creates) a cache rooted at baseDir. A missing index is
// an empty cache; a malformed index is rebuilt from the extraction files on
// disk, falling back to empty when nothing is recoverable.
func NewCache(baseDir string) (*Cache, error) {
	for _, dir := range []string{filepath.Join(baseDir, extractionsDir), filepath.Join(baseDir, metadataDir)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, docextract.Errorf(docextract.EINTERNAL, "creating cache directory %s: %v", dir, err)
		}
	}

	c := &Cache{
		baseDir: baseDir,
		index:   make(map[string]indexEntry),
	}

	data, err := os.ReadFile(c.indexPath())
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, docextract.Errorf(docextract.EINTERNAL, "reading cache index: %v", err)
	}

	if err := json.Unmarshal(data, &c.index); err != nil {
		// Corrupt index: rebuild what we can from the extraction files and
		// keep going; unchanged pages simply re-extract once.
		c.index = c.rebuildIndex()
		if _, err := c.Reconcile(); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.baseDir, indexFileName)
}

// rebuildIndex scans the extractions directory and reconstructs index
// entries for files that still parse. The content hash is unknown at this
// point, so rebuilt entries never produce cache hits until re-extracted.
func (c *Cache) rebuildIndex() map[string]indexEntry {
	index := make(map[string]indexEntry)

	entries, err := os.ReadDir(filepath.Join(c.baseDir, extractionsDir))
	if err != nil {
		return index
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.baseDir, extractionsDir, entry.Name()))
		if err != nil {
			continue
		}
		var extraction docextract.Extraction
		if err := json.Unmarshal(data, &extraction); err != nil || extraction.URL == "" {
			continue
		}

		urlHash := strings.TrimSuffix(entry.Name(), ".json")
		index[extraction.URL] = indexEntry{
			LastExtracted:  extraction.ExtractedAt.UTC().Format("2006-01-02T15:04:05Z"),
			ExtractionFile: extractionsDir + "/" + entry.Name(),
			MetadataFile:   metadataDir + "/" + urlHash + "_meta.json",
			URLHash:        urlHash,
		}
	}

	return index
}

// Decide computes the content hash for the cleaned content and compares it
// to the indexed hash for the URL. Hit and miss counters feed Stats.
func (c *Cache) Decide(url, content string) docextract.CacheDecision {
	hash := docextract.ContentHash(content)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index[url]
	switch {
	case !ok:
		c.misses++
		return docextract.CacheDecision{Reason: docextract.CacheReasonNewURL, ContentHash: hash}
	case entry.ContentHash != hash:
		c.misses++
		return docextract.CacheDecision{Reason: docextract.CacheReasonContentChanged, ContentHash: hash}
	default:
		c.hits++
		return docextract.CacheDecision{Hit: true, Reason: docextract.CacheReasonUnchanged, ContentHash: hash}
	}
}

// Cached returns the stored extraction and metadata for a URL.
func (c *Cache) Cached(url string) (*docextract.Extraction, *docextract.PageMetadata, error) {
	c.mu.Lock()
	entry, ok := c.index[url]
	c.mu.Unlock()

	if !ok {
		return nil, nil, docextract.Errorf(docextract.ENOTFOUND, "no cache record for %s", url)
	}

	var extraction docextract.Extraction
	if err := readJSON(filepath.Join(c.baseDir, filepath.FromSlash(entry.ExtractionFile)), &extraction); err != nil {
		return nil, nil, docextract.Errorf(docextract.ENOTFOUND, "cached extraction unreadable for %s: %v", url, err)
	}

	var meta docextract.PageMetadata
	if err := readJSON(filepath.Join(c.baseDir, filepath.FromSlash(entry.MetadataFile)), &meta); err != nil {
		return nil, nil, docextract.Errorf(docextract.ENOTFOUND, "cached metadata unreadable for %s: %v", url, err)
	}

	return &extraction, &meta, nil
}

// Put stores a new extraction. Extraction and metadata files are written
// first; only then is the index updated and persisted, so a failed index
// write leaves orphan files rather than dangling index entries.
func (c *Cache) Put(url, contentHash string, extraction *docextract.Extraction, meta *docextract.PageMetadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	urlHash := c.urlHashFor(url)
	entry := indexEntry{
		ContentHash:    contentHash,
		LastExtracted:  extraction.ExtractedAt.UTC().Format("2006-01-02T15:04:05Z"),
		ExtractionFile: extractionsDir + "/" + urlHash + ".json",
		MetadataFile:   metadataDir + "/" + urlHash + "_meta.json",
		URLHash:        urlHash,
	}

	if err := writeJSON(filepath.Join(c.baseDir, filepath.FromSlash(entry.ExtractionFile)), extraction); err != nil {
		return docextract.Errorf(docextract.EINTERNAL, "writing extraction for %s: %v", url, err)
	}
	if err := writeJSON(filepath.Join(c.baseDir, filepath.FromSlash(entry.MetadataFile)), meta); err != nil {
		return docextract.Errorf(docextract.EINTERNAL, "writing metadata for %s: %v", url, err)
	}

	c.index[url] = entry
	if err := c.saveIndexLocked(); err != nil {
		return docextract.Errorf(docextract.EINTERNAL, "writing cache index: %v", err)
	}

	return nil
}

// urlHashFor returns the filename hash for a URL, reusing the stored hash
// for known URLs and suffixing -1, -2, … when a new URL's hash prefix
// collides with a different URL's.
func (c *Cache) urlHashFor(url string) string {
	if entry, ok := c.index[url]; ok {
		return entry.URLHash
	}

	base := docextract.URLHash(url)
	taken := make(map[string]bool, len(c.index))
	for _, entry := range c.index {
		taken[entry.URLHash] = true
	}

	hash := base
	for i := 1; taken[hash]; i++ {
		hash = fmt.Sprintf("%s-%d", base, i)
	}
	return hash
}

// Stats reports cache totals and this run's hit/miss counters.
func (c *Cache) Stats() docextract.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := docextract.CacheStats{
		TotalURLs: len(c.index),
		Hits:      c.hits,
		Misses:    c.misses,
		BaseDir:   c.baseDir,
	}

	if _, err := os.Stat(c.indexPath()); err == nil {
		stats.IndexFileExists = true
	}
	for _, entry := range c.index {
		if fileExists(filepath.Join(c.baseDir, filepath.FromSlash(entry.ExtractionFile))) {
			stats.ExtractionFiles++
		}
		if fileExists(filepath.Join(c.baseDir, filepath.FromSlash(entry.MetadataFile))) {
			stats.MetadataFiles++
		}
	}

	return stats
}

// Reconcile drops index entries whose extraction and metadata files are
// both missing. It is idempotent.
func (c *Cache) Reconcile() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stale []string
	for url, entry := range c.index {
		extractionMissing := !fileExists(filepath.Join(c.baseDir, filepath.FromSlash(entry.ExtractionFile)))
		metadataMissing := !fileExists(filepath.Join(c.baseDir, filepath.FromSlash(entry.MetadataFile)))
		if extractionMissing && metadataMissing {
			stale = append(stale, url)
		}
	}

	for _, url := range stale {
		delete(c.index, url)
	}

	if len(stale) > 0 {
		if err := c.saveIndexLocked(); err != nil {
			return 0, docextract.Errorf(docextract.EINTERNAL, "writing cache index: %v", err)
		}
	}

	return len(stale), nil
}

// saveIndexLocked persists the index atomically: temp file, fsync, rename.
// Callers must hold c.mu.
func (c *Cache) saveIndexLocked() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := c.indexPath() + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	return os.Rename(tmpPath, c.indexPath())
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
