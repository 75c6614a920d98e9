package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docextract"
)

// summaryFileName is the per-run summary written next to the page files.
const summaryFileName = "index.json"

// Ensure Writer implements docextract.OutputWriter at compile time.
var _ docextract.OutputWriter = (*Writer)(nil)

// Writer writes run output to a directory: one markdown file per retained
// page plus an index.json summary from which every page is discoverable.
type Writer struct {
	baseDir string

	mu    sync.Mutex
	paths map[string]string // URL → relative output path
	used  map[string]bool
}

// NewWriter creates a Writer rooted at baseDir.
func NewWriter(baseDir string) *Writer {
	return &Writer{
		baseDir: baseDir,
		paths:   make(map[string]string),
		used:    make(map[string]bool),
	}
}

// URLToPath converts a documentation URL to a sanitized relative file path.
// Example: https://example.com/docs/api/users → docs/api/users.md
func URLToPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", docextract.Errorf(docextract.EINVALID, "invalid URL %q", rawURL)
	}

	path := u.Path
	if path == "" || path == "/" {
		return "index.md", nil
	}

	path = strings.TrimPrefix(path, "/")
	if strings.HasSuffix(path, "/") {
		return sanitizePath(path) + "index.md", nil
	}

	return sanitizePath(path) + ".md", nil
}

// sanitizePath keeps path separators and replaces characters that are
// unsafe in filenames.
func sanitizePath(path string) string {
	var sb strings.Builder
	for _, r := range path {
		switch {
		case r == '/' || r == '.' || r == '-' || r == '_':
			sb.WriteRune(r)
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		default:
			sb.WriteRune('-')
		}
	}
	return strings.ReplaceAll(sb.String(), "..", "-")
}

// WritePage writes one retained page as markdown with YAML frontmatter.
// Distinct URLs that sanitize to the same path get a short content-neutral
// digest suffix so neither overwrites the other.
func (w *Writer) WritePage(ctx context.Context, result *docextract.PageResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if result.Page == nil || result.Extraction == nil {
		return docextract.Errorf(docextract.EINVALID, "page result has no extraction to write")
	}

	relPath, err := URLToPath(result.Page.URL)
	if err != nil {
		return err
	}

	w.mu.Lock()
	if w.used[relPath] {
		digest := xxhash.Sum64String(result.Page.URL)
		relPath = strings.TrimSuffix(relPath, ".md") + fmt.Sprintf("-%08x", digest&0xffffffff) + ".md"
	}
	w.used[relPath] = true
	w.paths[result.Page.URL] = relPath
	w.mu.Unlock()

	fullPath := filepath.Join(w.baseDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return docextract.Errorf(docextract.EINTERNAL, "creating output directory: %v", err)
	}

	content := FormatPage(result)
	if err := os.WriteFile(fullPath, []byte(content), 0o644); err != nil {
		return docextract.Errorf(docextract.EINTERNAL, "writing page %s: %v", relPath, err)
	}
	return nil
}

// FormatPage formats a page result with YAML frontmatter followed by the
// extracted sections.
func FormatPage(result *docextract.PageResult) string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("source: ")
	b.WriteString(result.Page.URL)
	b.WriteString("\ntitle: ")
	b.WriteString(result.Page.Title)
	b.WriteString("\ncrawled: ")
	b.WriteString(result.Page.FetchedAt.UTC().Format("2006-01-02"))
	if result.DecisionExplanation != "" {
		b.WriteString("\ndecision: ")
		b.WriteString(result.DecisionExplanation)
	}
	b.WriteString("\n---\n\n")
	b.WriteString(strings.Join(result.Extraction.Content, "\n\n"))
	b.WriteString("\n")
	return b.String()
}

// summaryPage is one entry in the run summary.
type summaryPage struct {
	URL                 string    `json:"url"`
	Title               string    `json:"title"`
	Depth               int       `json:"depth"`
	State               string    `json:"state"`
	Included            bool      `json:"included"`
	DecisionExplanation string    `json:"decisionExplanation,omitempty"`
	FromCache           bool      `json:"fromCache"`
	OutputFile          string    `json:"outputFile,omitempty"`
	Sections            []string  `json:"sections,omitempty"`
	CrawledAt           time.Time `json:"crawledAt"`
}

type runSummaryFile struct {
	Run   *docextract.RunSummary `json:"run"`
	Pages []summaryPage          `json:"pages"`
}

// WriteSummary writes index.json covering every page of the run, including
// excluded and failed ones, with decision explanations and timestamps.
// Persisted pages reference their markdown file and its section headings.
func (w *Writer) WriteSummary(ctx context.Context, summary *docextract.RunSummary, results []*docextract.PageResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	out := runSummaryFile{Run: summary}
	for _, result := range results {
		if result.Page == nil {
			continue
		}

		page := summaryPage{
			URL:                 result.Page.URL,
			Title:               result.Page.Title,
			Depth:               result.Page.Depth,
			State:               string(result.State),
			Included:            result.Included,
			DecisionExplanation: result.DecisionExplanation,
			FromCache:           result.FromCache,
			CrawledAt:           result.Page.FetchedAt,
		}

		w.mu.Lock()
		page.OutputFile = w.paths[result.Page.URL]
		w.mu.Unlock()

		if result.Extraction != nil {
			for _, section := range docextract.ExtractSections(strings.Join(result.Extraction.Content, "\n\n")) {
				page.Sections = append(page.Sections, section.Title)
			}
		}

		out.Pages = append(out.Pages, page)
	}

	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return docextract.Errorf(docextract.EINTERNAL, "creating output directory: %v", err)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(w.baseDir, summaryFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return docextract.Errorf(docextract.EINTERNAL, "writing summary: %v", err)
	}
	return nil
}
