package mock

import (
	"context"

	"github.com/fwojciec/docextract"
)

var _ docextract.OutputWriter = (*OutputWriter)(nil)

// OutputWriter is a mock implementation of docextract.OutputWriter.
type OutputWriter struct {
	WritePageFn    func(ctx context.Context, result *docextract.PageResult) error
	WriteSummaryFn func(ctx context.Context, summary *docextract.RunSummary, results []*docextract.PageResult) error
}

func (w *OutputWriter) WritePage(ctx context.Context, result *docextract.PageResult) error {
	if w.WritePageFn == nil {
		return nil
	}
	return w.WritePageFn(ctx, result)
}

func (w *OutputWriter) WriteSummary(ctx context.Context, summary *docextract.RunSummary, results []*docextract.PageResult) error {
	if w.WriteSummaryFn == nil {
		return nil
	}
	return w.WriteSummaryFn(ctx, summary, results)
}
