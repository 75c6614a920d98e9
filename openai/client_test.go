package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/docextract"
	"github.com/fwojciec/docextract/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturedRequest is the JSON body the client sent, with raw fields so
// omitted parameters are distinguishable from zero values.
type capturedRequest struct {
	Model       string               `json:"model"`
	Messages    []docextract.Message `json:"messages"`
	Temperature *float64             `json:"temperature"`
	MaxTokens   *int                 `json:"max_tokens"`
}

func newServer(t *testing.T, capture *capturedRequest, response string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(capture))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(response))
	}))
}

const okResponse = `{
	"choices": [{"message": {"content": "extracted content"}}],
	"usage": {"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150}
}`

func TestClient_Complete_standard_model(t *testing.T) {
	t.Parallel()

	var captured capturedRequest
	srv := newServer(t, &captured, okResponse)
	defer srv.Close()

	client, err := openai.NewClient("test-key", openai.WithBaseURL(srv.URL))
	require.NoError(t, err)

	temp := 0.1
	maxTokens := 500
	resp, err := client.Complete(context.Background(), docextract.CompletionRequest{
		Provider: "openai/gpt-4o",
		Messages: []docextract.Message{
			{Role: docextract.RoleSystem, Content: "You are an extraction assistant."},
			{Role: docextract.RoleUser, Content: "# Docs"},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})

	require.NoError(t, err)
	assert.Equal(t, "extracted content", resp.Content)
	assert.Equal(t, docextract.Usage{PromptTokens: 120, CompletionTokens: 30, TotalTokens: 150}, resp.Usage)

	assert.Equal(t, "gpt-4o", captured.Model, "model is the provider suffix")
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, docextract.RoleSystem, captured.Messages[0].Role)
	require.NotNil(t, captured.Temperature)
	assert.Equal(t, 0.1, *captured.Temperature)
	require.NotNil(t, captured.MaxTokens)
	assert.Equal(t, 500, *captured.MaxTokens)
}

func TestClient_Complete_o1_model_quirks(t *testing.T) {
	t.Parallel()

	var captured capturedRequest
	srv := newServer(t, &captured, okResponse)
	defer srv.Close()

	client, err := openai.NewClient("test-key", openai.WithBaseURL(srv.URL))
	require.NoError(t, err)

	temp := 0.0
	maxTokens := 500
	_, err = client.Complete(context.Background(), docextract.CompletionRequest{
		Provider: "openai/o1-mini",
		Messages: []docextract.Message{
			{Role: docextract.RoleSystem, Content: "System instructions."},
			{Role: docextract.RoleUser, Content: "User content."},
		},
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	require.NoError(t, err)

	require.Len(t, captured.Messages, 1, "system message folded into user message")
	assert.Equal(t, docextract.RoleUser, captured.Messages[0].Role)
	assert.Contains(t, captured.Messages[0].Content, "System instructions.")
	assert.Contains(t, captured.Messages[0].Content, "User content.")
	assert.Nil(t, captured.Temperature, "o1 models reject temperature")
	assert.Nil(t, captured.MaxTokens, "o1 models reject max_tokens")
}

func TestClient_Complete_non_200_is_unavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	defer srv.Close()

	client, err := openai.NewClient("test-key", openai.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), docextract.CompletionRequest{
		Provider: "openai/gpt-4o",
		Messages: []docextract.Message{{Role: docextract.RoleUser, Content: "hi"}},
	})

	require.Error(t, err)
	assert.Equal(t, docextract.EUNAVAILABLE, docextract.ErrorCode(err))
	assert.Contains(t, docextract.ErrorMessage(err), "429")
}

func TestClient_Complete_empty_choices_is_internal(t *testing.T) {
	t.Parallel()

	var captured capturedRequest
	srv := newServer(t, &captured, `{"choices": [], "usage": {}}`)
	defer srv.Close()

	client, err := openai.NewClient("test-key", openai.WithBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), docextract.CompletionRequest{
		Provider: "openai/gpt-4o",
		Messages: []docextract.Message{{Role: docextract.RoleUser, Content: "hi"}},
	})

	require.Error(t, err)
	assert.Equal(t, docextract.EINTERNAL, docextract.ErrorCode(err))
}

func TestNewClient_requires_api_key(t *testing.T) {
	t.Parallel()

	_, err := openai.NewClient("")

	require.Error(t, err)
	assert.Equal(t, docextract.EINVALID, docextract.ErrorCode(err))
	assert.Contains(t, docextract.ErrorMessage(err), "OPENAI_API_KEY")
}

func TestIsReasoningModel(t *testing.T) {
	t.Parallel()

	assert.True(t, openai.IsReasoningModel("openai/o1-mini"))
	assert.True(t, openai.IsReasoningModel("openai/O1-preview"))
	assert.False(t, openai.IsReasoningModel("openai/gpt-4o"))
	assert.False(t, openai.IsReasoningModel("openai/gpt-4o-mini"))
}

func TestModelName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "gpt-4o", openai.ModelName("openai/gpt-4o"))
	assert.Equal(t, "gpt-4o", openai.ModelName("gpt-4o"))
}
