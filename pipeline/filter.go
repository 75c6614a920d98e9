package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/fwojciec/docextract"
)

// filterSampleLen bounds the content sample sent to the filter model.
const filterSampleLen = 1500

// filterSystemPrompt frames the binary inclusion task.
const filterSystemPrompt = "You are an expert at analyzing web content for documentation inclusion decisions."

// filterMaxTokens caps the filter response; a decision plus one sentence
// fits comfortably.
const filterMaxTokens = 500

// Filter makes binary include/exclude decisions for crawled pages against
// a target topic via one LM call per page. Parse failures and exhausted
// LM errors fail open: the page is included and the explanation records
// what went wrong, so a downstream extraction is wasted at worst.
type Filter struct {
	Completer   docextract.Completer
	Config      docextract.FilterConfig
	TargetTopic string
	CallTimeout time.Duration

	mu    sync.Mutex
	usage docextract.Usage
	calls int
}

// Decide analyzes one page for inclusion.
func (f *Filter) Decide(ctx context.Context, page *docextract.Page) (included bool, explanation string) {
	req := docextract.CompletionRequest{
		Provider: f.Config.Provider,
		Messages: []docextract.Message{
			{Role: docextract.RoleSystem, Content: filterSystemPrompt},
			{Role: docextract.RoleUser, Content: f.buildPrompt(page)},
		},
	}
	temp := f.Config.Temperature
	req.Temperature = &temp
	maxTokens := filterMaxTokens
	req.MaxTokens = &maxTokens

	resp, err := completeWithRetry(ctx, f.Completer, req, f.CallTimeout, f.countCall)
	if err != nil {
		return true, fmt.Sprintf("analysis failed: %s", docextract.ErrorMessage(err))
	}

	f.mu.Lock()
	f.usage.Add(resp.Usage)
	f.mu.Unlock()

	return parseDecision(resp.Content)
}

// Usage returns aggregate token usage across filter calls.
func (f *Filter) Usage() docextract.Usage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage
}

// Calls returns the number of LM requests issued, retries included.
func (f *Filter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *Filter) countCall() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

// buildPrompt renders the inclusion prompt: target topic, URL, title and a
// bounded content sample.
func (f *Filter) buildPrompt(page *docextract.Page) string {
	return fmt.Sprintf(`Analyze this web page and decide whether to INCLUDE or EXCLUDE it for the target topic: %q

Page Details:
- URL: %s
- Title: %s
- Content Sample: %s

Make a binary decision based on relevance to the target topic.

Respond in this exact JSON format:
{
    "decision": "include",
    "explanation": "Brief explanation of why this page should be included or excluded"
}

The "decision" field must be exactly "include" or "exclude".

Consider factors like:
- Does the content directly address the target topic?
- Are there specific technical details related to the target?
- Is this a navigation page vs. actual documentation content?
- Does the URL path indicate relevance?
- Does the title suggest relevant content?`, f.TargetTopic, page.URL, page.Title, contentSample(page.Content))
}

// contentSample returns a deterministic bounded prefix of the cleaned
// content, cut back to a rune boundary so the prompt stays valid UTF-8.
func contentSample(content string) string {
	if len(content) <= filterSampleLen {
		return content
	}
	sample := content[:filterSampleLen]
	for len(sample) > 0 && !utf8.ValidString(sample) {
		sample = sample[:len(sample)-1]
	}
	return sample
}

// decisionResponse is the JSON shape the filter model is instructed to emit.
type decisionResponse struct {
	Decision    string `json:"decision"`
	Explanation string `json:"explanation"`
}

// parseDecision extracts the binary decision from an LM response. The first
// JSON object in the text wins; a response without one is scanned for a
// bare include/exclude keyword. Anything still ambiguous is a parse error
// and fails open to include with the raw response preserved.
func parseDecision(text string) (included bool, explanation string) {
	trimmed := strings.TrimSpace(text)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start != -1 && end > start {
		var parsed decisionResponse
		if err := json.NewDecoder(strings.NewReader(trimmed[start:])).Decode(&parsed); err == nil {
			explanation := parsed.Explanation
			if explanation == "" {
				explanation = "No explanation provided"
			}
			switch strings.ToLower(strings.TrimSpace(parsed.Decision)) {
			case "include":
				return true, explanation
			case "exclude":
				return false, explanation
			}
		}
		return true, fmt.Sprintf("parse error: could not parse clear decision: %s", trimmed)
	}

	lower := strings.ToLower(trimmed)
	hasInclude := strings.Contains(lower, "include")
	hasExclude := strings.Contains(lower, "exclude")
	switch {
	case hasInclude && !hasExclude:
		return true, trimmed
	case hasExclude && !hasInclude:
		return false, trimmed
	}

	return true, fmt.Sprintf("parse error: could not parse clear decision: %s", trimmed)
}
