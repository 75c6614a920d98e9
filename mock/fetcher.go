package mock

import (
	"context"

	"github.com/fwojciec/docextract"
)

var _ docextract.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of docextract.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (string, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	if f.CloseFn == nil {
		return nil
	}
	return f.CloseFn()
}
