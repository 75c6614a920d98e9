package pipeline_test

import (
	"context"
	"testing"

	"github.com/fwojciec/docextract"
	"github.com/fwojciec/docextract/mock"
	"github.com/fwojciec/docextract/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExtractor(completer docextract.Completer) *pipeline.Extractor {
	return &pipeline.Extractor{
		Completer: completer,
		Config:    docextract.DefaultExtractorConfig(),
	}
}

func TestExtractor_Extract_splits_response_into_sections(t *testing.T) {
	t.Parallel()

	e := newExtractor(respond("# Client\n\nCreate a client with `New()`.\n\n## Auth\n\nPass an API key."))

	extraction, err := e.Extract(context.Background(), page())

	require.NoError(t, err)
	assert.Equal(t, "https://example.test/sdk/python", extraction.URL)
	assert.Equal(t, []string{
		"# Client",
		"Create a client with `New()`.",
		"## Auth",
		"Pass an API key.",
	}, extraction.Content)
	assert.False(t, extraction.ExtractedAt.IsZero())
}

func TestExtractor_Extract_empty_response_is_an_error(t *testing.T) {
	t.Parallel()

	e := newExtractor(respond("   \n\n  "))

	extraction, err := e.Extract(context.Background(), page())

	require.Error(t, err, "no empty payloads: unparsable pages surface as errors")
	assert.Nil(t, extraction)
}

func TestExtractor_Extract_prompt_contract(t *testing.T) {
	t.Parallel()

	var got docextract.CompletionRequest
	e := newExtractor(&mock.Completer{
		CompleteFn: func(_ context.Context, req docextract.CompletionRequest) (*docextract.CompletionResponse, error) {
			got = req
			return &docextract.CompletionResponse{Content: "section"}, nil
		},
	})

	_, err := e.Extract(context.Background(), page())
	require.NoError(t, err)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, docextract.RoleSystem, got.Messages[0].Role)
	assert.Equal(t, docextract.DefaultExtractionInstruction, got.Messages[0].Content)
	assert.Equal(t, page().Content, got.Messages[1].Content)
	require.NotNil(t, got.Temperature)
	assert.Equal(t, 0.1, *got.Temperature)
	assert.Nil(t, got.MaxTokens)
}

func TestExtractor_Extract_retries_with_fixed_temperature(t *testing.T) {
	t.Parallel()

	var temps []float64
	calls := 0
	e := newExtractor(&mock.Completer{
		CompleteFn: func(_ context.Context, req docextract.CompletionRequest) (*docextract.CompletionResponse, error) {
			calls++
			temps = append(temps, *req.Temperature)
			if calls < 2 {
				return nil, docextract.Errorf(docextract.EUNAVAILABLE, "LM request failed")
			}
			return &docextract.CompletionResponse{Content: "ok"}, nil
		},
	})

	_, err := e.Extract(context.Background(), page())

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []float64{0.1, 0.1}, temps, "temperature never altered between attempts")
}

func TestExtractor_Extract_exhausted_retries_fail_the_page(t *testing.T) {
	t.Parallel()

	calls := 0
	e := newExtractor(&mock.Completer{
		CompleteFn: func(_ context.Context, _ docextract.CompletionRequest) (*docextract.CompletionResponse, error) {
			calls++
			return nil, docextract.Errorf(docextract.EUNAVAILABLE, "LM request failed")
		},
	})

	_, err := e.Extract(context.Background(), page())

	require.Error(t, err)
	assert.Equal(t, 3, calls, "1 initial + 2 retries")
}

func TestExtractor_usage_and_calls_accumulate(t *testing.T) {
	t.Parallel()

	e := newExtractor(&mock.Completer{
		CompleteFn: func(_ context.Context, _ docextract.CompletionRequest) (*docextract.CompletionResponse, error) {
			return &docextract.CompletionResponse{
				Content: "section",
				Usage:   docextract.Usage{PromptTokens: 500, CompletionTokens: 50, TotalTokens: 550},
			}, nil
		},
	})

	_, err := e.Extract(context.Background(), page())
	require.NoError(t, err)
	_, err = e.Extract(context.Background(), page())
	require.NoError(t, err)

	assert.Equal(t, 2, e.Calls())
	assert.Equal(t, docextract.Usage{PromptTokens: 1000, CompletionTokens: 100, TotalTokens: 1100}, e.Usage())
}
