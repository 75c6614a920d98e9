// Package openai provides a docextract.Completer backed by the OpenAI
// chat completions API. The adapter owns the provider quirk handling:
// o1-family models reject system messages and sampling parameters, so
// requests to them are rewritten into a single user message with
// temperature and max_tokens omitted.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fwojciec/docextract"
)

// DefaultBaseURL is the OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com/v1"

// Ensure Client implements docextract.Completer at compile time.
var _ docextract.Completer = (*Client)(nil)

// Client calls the OpenAI chat completions API.
// Client is safe for concurrent use; connection pooling is handled by the
// underlying http.Client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint (e.g. for tests or proxies).
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Client. The API key is required.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, docextract.Errorf(docextract.EINVALID, "OPENAI_API_KEY not set")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// IsReasoningModel reports whether the provider identifier names an
// o1-family model, which disallows system messages, temperature and
// max_tokens.
func IsReasoningModel(provider string) bool {
	return strings.Contains(strings.ToLower(provider), "o1")
}

// ModelName returns the model portion of a provider identifier
// (e.g. "openai/gpt-4o" → "gpt-4o").
func ModelName(provider string) string {
	if i := strings.LastIndex(provider, "/"); i != -1 {
		return provider[i+1:]
	}
	return provider
}

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []docextract.Message `json:"messages"`
	Temperature *float64             `json:"temperature,omitempty"`
	MaxTokens   *int                 `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Complete sends one chat completion request and returns the model's text
// and token usage.
func (c *Client) Complete(ctx context.Context, req docextract.CompletionRequest) (*docextract.CompletionResponse, error) {
	body := chatRequest{
		Model:       ModelName(req.Provider),
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}

	if IsReasoningModel(req.Provider) {
		body.Messages = collapseSystemMessages(req.Messages)
		body.Temperature = nil
		body.MaxTokens = nil
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, docextract.Errorf(docextract.EUNAVAILABLE, "LM request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, docextract.Errorf(docextract.EUNAVAILABLE, "reading LM response: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, docextract.Errorf(docextract.EUNAVAILABLE, "LM API error (%d): %s", resp.StatusCode, truncate(string(data), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, docextract.Errorf(docextract.EINTERNAL, "unmarshaling LM response: %v", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, docextract.Errorf(docextract.EINTERNAL, "no choices in LM response")
	}

	return &docextract.CompletionResponse{
		Content: parsed.Choices[0].Message.Content,
		Usage: docextract.Usage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

// collapseSystemMessages folds system instructions into the first user
// message for models without a system role.
func collapseSystemMessages(messages []docextract.Message) []docextract.Message {
	var system []string
	var rest []docextract.Message
	for _, m := range messages {
		if m.Role == docextract.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	if len(system) == 0 {
		return rest
	}

	prefix := strings.Join(system, "\n\n")
	if len(rest) == 0 {
		return []docextract.Message{{Role: docextract.RoleUser, Content: prefix}}
	}

	combined := make([]docextract.Message, len(rest))
	copy(combined, rest)
	combined[0] = docextract.Message{
		Role:    docextract.RoleUser,
		Content: prefix + "\n\n" + rest[0].Content,
	}
	return combined
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
