// Package slog provides logging decorators for pipeline dependencies.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docextract"
)

// Ensure LoggingCompleter implements docextract.Completer.
var _ docextract.Completer = (*LoggingCompleter)(nil)

// LoggingCompleter wraps a Completer with structured logging of each LM
// call: provider, duration, token usage and failures.
type LoggingCompleter struct {
	next   docextract.Completer
	logger *slog.Logger
}

// NewLoggingCompleter creates a new LoggingCompleter.
func NewLoggingCompleter(next docextract.Completer, logger *slog.Logger) *LoggingCompleter {
	return &LoggingCompleter{next: next, logger: logger}
}

// Complete delegates to the wrapped Completer and logs the outcome.
func (c *LoggingCompleter) Complete(ctx context.Context, req docextract.CompletionRequest) (*docextract.CompletionResponse, error) {
	begin := time.Now()
	resp, err := c.next.Complete(ctx, req)
	if err != nil {
		c.logger.Warn("LM call failed",
			"provider", req.Provider,
			"duration", time.Since(begin),
			"error", docextract.ErrorMessage(err),
		)
		return nil, err
	}

	c.logger.Debug("LM call",
		"provider", req.Provider,
		"duration", time.Since(begin),
		"promptTokens", resp.Usage.PromptTokens,
		"completionTokens", resp.Usage.CompletionTokens,
	)
	return resp, nil
}
