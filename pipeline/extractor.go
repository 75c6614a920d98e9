package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/fwojciec/docextract"
)

// Extractor converts cleaned page content into an ordered sequence of
// extracted sections via one LM call per page.
type Extractor struct {
	Completer   docextract.Completer
	Config      docextract.ExtractorConfig
	CallTimeout time.Duration

	mu    sync.Mutex
	usage docextract.Usage
	calls int
}

// Extract runs the extraction model over a page's cleaned content.
// The result always carries at least one non-empty section; a response
// that yields none is an extraction error, not an empty payload.
func (e *Extractor) Extract(ctx context.Context, page *docextract.Page) (*docextract.Extraction, error) {
	req := docextract.CompletionRequest{
		Provider: e.Config.Provider,
		Messages: []docextract.Message{
			{Role: docextract.RoleSystem, Content: e.Config.Instruction},
			{Role: docextract.RoleUser, Content: page.Content},
		},
	}
	temp := e.Config.Temperature
	req.Temperature = &temp

	resp, err := completeWithRetry(ctx, e.Completer, req, e.CallTimeout, e.countCall)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.usage.Add(resp.Usage)
	e.mu.Unlock()

	sections := docextract.SplitSections(resp.Content)
	if len(sections) == 0 {
		return nil, docextract.Errorf(docextract.EINTERNAL, "extraction produced no content for %s", page.URL)
	}

	return &docextract.Extraction{
		URL:         page.URL,
		Content:     sections,
		ExtractedAt: time.Now().UTC(),
	}, nil
}

// Usage returns aggregate token usage across extraction calls.
func (e *Extractor) Usage() docextract.Usage {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.usage
}

// Calls returns the number of LM requests issued, retries included.
func (e *Extractor) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *Extractor) countCall() {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
}
