package mock

import "github.com/fwojciec/docextract"

var _ docextract.Converter = (*Converter)(nil)

// Converter is a mock implementation of docextract.Converter.
type Converter struct {
	ConvertFn func(html string) (string, error)
}

func (c *Converter) Convert(html string) (string, error) {
	return c.ConvertFn(html)
}
