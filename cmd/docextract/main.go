// Command docextract crawls a documentation site, optionally filters pages
// for relevance with a language model, extracts structured content with a
// second model, and persists results behind a content-addressed cache.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docextract"
)

// Exit codes: 0 success, 1 run-level fatal error, 2 invalid invocation.
const (
	exitOK    = 0
	exitFatal = 1
	exitUsage = 2
)

// errUsage marks invocation errors that should exit with code 2.
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(exitUsage)
		}
		fmt.Fprintln(os.Stderr, docextract.ErrorMessage(err))
		os.Exit(exitFatal)
	}
	os.Exit(exitOK)
}

// Main represents the program.
type Main struct{}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// CLI defines the command-line interface structure for Kong. Environment
// variables provide defaults for the crawl bounds and model selection;
// flags override them.
type CLI struct {
	URL string `arg:"" optional:"" help:"Seed documentation URL to crawl"`

	Output   string `default:"output" help:"Directory for extracted markdown and the run summary"`
	CacheDir string `default:"extracted-docs" help:"Directory for the content-addressed extraction cache"`

	Keywords        string  `help:"Comma-separated keywords for crawl prioritization"`
	KeywordWeight   float64 `default:"0.7" help:"Keyword share of the link score (0-1)"`
	MaxDepth        int     `default:"2" env:"MAX_DEPTH" help:"Maximum crawl depth (seed is depth 0)"`
	MaxPages        int     `default:"25" env:"MAX_PAGES" help:"Maximum number of pages to crawl"`
	IncludeExternal bool    `env:"INCLUDE_EXTERNAL" help:"Follow links outside the seed's registered domain"`

	TargetTopic     string `help:"Topic the relevance filter matches pages against"`
	EnableFiltering bool   `help:"Filter pages for relevance before extraction"`

	LLMProvider          string  `default:"openai/gpt-4o" env:"LLM_PROVIDER" help:"Extraction model"`
	LLMTemperature       float64 `default:"0.1" env:"LLM_TEMPERATURE" help:"Extraction temperature"`
	FilterLLMProvider    string  `default:"openai/gpt-4o-mini" env:"FILTER_LLM_PROVIDER" help:"Filter model"`
	FilterLLMTemperature float64 `default:"0.0" env:"FILTER_LLM_TEMPERATURE" help:"Filter temperature"`

	Render             bool          `help:"Render pages in a headless browser (for JavaScript-heavy sites)"`
	Timeout            time.Duration `default:"10s" help:"Fetch timeout per page"`
	FilterConcurrency  int           `default:"8" help:"In-flight filter LM calls"`
	ExtractConcurrency int           `default:"4" help:"In-flight extraction LM calls"`
	Verbose            bool          `short:"v" help:"Enable debug logging"`
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docextract"),
		kong.Description("Crawl a documentation site and extract its content with a language model"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no arguments provided: %w", errUsage)
	}

	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}

	// Invocation-level validation happens before any network activity.
	if cli.URL == "" {
		return fmt.Errorf("seed URL required: %w", errUsage)
	}
	if cli.EnableFiltering && cli.TargetTopic == "" {
		return fmt.Errorf("--target-topic is required when --enable-filtering is set: %w", errUsage)
	}

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	return runPipeline(ctx, cli, logger, stdout, stderr)
}
