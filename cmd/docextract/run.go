package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fwojciec/docextract"
	"github.com/fwojciec/docextract/crawl"
	"github.com/fwojciec/docextract/fs"
	"github.com/fwojciec/docextract/gemini"
	"github.com/fwojciec/docextract/goquery"
	"github.com/fwojciec/docextract/htmltomarkdown"
	dochttp "github.com/fwojciec/docextract/http"
	"github.com/fwojciec/docextract/openai"
	"github.com/fwojciec/docextract/pipeline"
	"github.com/fwojciec/docextract/rod"
	docslog "github.com/fwojciec/docextract/slog"
	"github.com/fwojciec/docextract/trafilatura"
	"google.golang.org/genai"
)

// crawlRPS paces requests within a domain during the crawl.
const crawlRPS = 2.0

// runPipeline wires the dependencies and executes one run.
func runPipeline(ctx context.Context, cli *CLI, logger *slog.Logger, stdout, stderr io.Writer) error {
	crawlCfg := docextract.CrawlConfig{
		MaxDepth:        cli.MaxDepth,
		MaxPages:        cli.MaxPages,
		IncludeExternal: cli.IncludeExternal,
		Keywords:        splitKeywords(cli.Keywords),
		KeywordWeight:   cli.KeywordWeight,
	}

	extractorCfg := docextract.ExtractorConfig{
		Provider:    cli.LLMProvider,
		Temperature: cli.LLMTemperature,
		Instruction: docextract.DefaultExtractionInstruction,
	}

	completers := newCompleterSet(ctx, logger)

	extractorCompleter, err := completers.forProvider(cli.LLMProvider)
	if err != nil {
		return err
	}

	var filter *pipeline.Filter
	if cli.EnableFiltering {
		filterCompleter, err := completers.forProvider(cli.FilterLLMProvider)
		if err != nil {
			return err
		}
		filter = &pipeline.Filter{
			Completer: filterCompleter,
			Config: docextract.FilterConfig{
				Provider:    cli.FilterLLMProvider,
				Temperature: cli.FilterLLMTemperature,
			},
			TargetTopic: cli.TargetTopic,
		}
	}

	var fetcher docextract.Fetcher
	if cli.Render {
		rodFetcher, err := rod.NewFetcher()
		if err != nil {
			fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
			return fmt.Errorf("failed to start browser: %w", err)
		}
		fetcher = rodFetcher
	} else {
		fetcher = dochttp.NewFetcher(dochttp.WithTimeout(cli.Timeout))
	}
	defer fetcher.Close()

	cache, err := fs.NewCache(cli.CacheDir)
	if err != nil {
		return fmt.Errorf("opening cache at %s: %w", cli.CacheDir, err)
	}

	p := &pipeline.Pipeline{
		Crawler: &crawl.Crawler{
			Fetcher:     fetcher,
			Extractor:   trafilatura.NewExtractor(),
			Converter:   htmltomarkdown.NewConverter(),
			Links:       goquery.NewSelector(),
			Sitemaps:    dochttp.NewSitemapService(nil),
			RateLimiter: crawl.NewDomainLimiter(crawlRPS),
		},
		Filter: filter,
		Extractor: &pipeline.Extractor{
			Completer: extractorCompleter,
			Config:    extractorCfg,
		},
		Cache:              docslog.NewLoggingCache(cache, logger),
		Writer:             fs.NewWriter(cli.Output),
		CrawlConfig:        crawlCfg,
		FilterConcurrency:  cli.FilterConcurrency,
		ExtractConcurrency: cli.ExtractConcurrency,
		Logger:             logger,
	}

	opts := docextract.RunOptions{
		SeedURL:          cli.URL,
		OutputDir:        cli.Output,
		TargetTopic:      cli.TargetTopic,
		FilteringEnabled: cli.EnableFiltering,
	}

	summary, _, runErr := p.Run(ctx, opts)
	if summary != nil {
		printSummary(stdout, summary, cache.Stats())
	}
	return runErr
}

// completerSet builds provider adapters lazily so a run only pays for the
// backends its configuration names.
type completerSet struct {
	ctx    context.Context
	logger *slog.Logger
	openai docextract.Completer
	gemini docextract.Completer
}

func newCompleterSet(ctx context.Context, logger *slog.Logger) *completerSet {
	return &completerSet{ctx: ctx, logger: logger}
}

// forProvider routes "gemini/..." identifiers to the Gemini adapter and
// everything else to the OpenAI-compatible adapter.
func (s *completerSet) forProvider(provider string) (docextract.Completer, error) {
	if strings.HasPrefix(provider, "gemini/") {
		if s.gemini == nil {
			apiKey := os.Getenv("GEMINI_API_KEY")
			if apiKey == "" {
				return nil, docextract.Errorf(docextract.EINVALID, "GEMINI_API_KEY not set")
			}
			client, err := genai.NewClient(s.ctx, &genai.ClientConfig{
				APIKey:  apiKey,
				Backend: genai.BackendGeminiAPI,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
			}
			s.gemini = docslog.NewLoggingCompleter(gemini.NewCompleter(client), s.logger)
		}
		return s.gemini, nil
	}

	if s.openai == nil {
		client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"))
		if err != nil {
			return nil, err
		}
		s.openai = docslog.NewLoggingCompleter(client, s.logger)
	}
	return s.openai, nil
}

// splitKeywords parses a comma-separated keyword list, dropping empties.
func splitKeywords(s string) []string {
	if s == "" {
		return nil
	}
	var keywords []string
	for _, kw := range strings.Split(s, ",") {
		kw = strings.TrimSpace(kw)
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return keywords
}

// printSummary writes the run report to stdout.
func printSummary(w io.Writer, summary *docextract.RunSummary, cacheStats docextract.CacheStats) {
	fmt.Fprintf(w, "Run %s finished in %s\n", summary.RunID, summary.Duration.Round(10*time.Millisecond))
	fmt.Fprintf(w, "  pages fetched:      %d\n", summary.TotalFetched)
	if summary.FilterCalls > 0 {
		fmt.Fprintf(w, "  filtered in/out:    %d/%d\n", summary.FilteredIn, summary.FilteredOut)
	}
	fmt.Fprintf(w, "  cache hits/misses:  %d/%d\n", summary.CacheHits, summary.CacheMisses)
	fmt.Fprintf(w, "  extracted:          %d\n", summary.Extracted)
	fmt.Fprintf(w, "  failed:             %d\n", summary.Failed)
	fmt.Fprintf(w, "  LM calls:           %d filter, %d extract\n", summary.FilterCalls, summary.ExtractCalls)
	fmt.Fprintf(w, "  tokens:             %d prompt, %d completion, %d total\n",
		summary.Usage.PromptTokens, summary.Usage.CompletionTokens, summary.Usage.TotalTokens)
	fmt.Fprintf(w, "  cached URLs:        %d\n", cacheStats.TotalURLs)
}
