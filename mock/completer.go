package mock

import (
	"context"

	"github.com/fwojciec/docextract"
)

var _ docextract.Completer = (*Completer)(nil)

// Completer is a mock implementation of docextract.Completer.
type Completer struct {
	CompleteFn func(ctx context.Context, req docextract.CompletionRequest) (*docextract.CompletionResponse, error)
}

func (c *Completer) Complete(ctx context.Context, req docextract.CompletionRequest) (*docextract.CompletionResponse, error) {
	return c.CompleteFn(ctx, req)
}
