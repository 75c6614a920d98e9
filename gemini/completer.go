// Package gemini provides a docextract.Completer backed by the Google
// Gemini API, selected for provider identifiers of the form
// "gemini/<model>".
package gemini

import (
	"context"
	"strings"

	"github.com/fwojciec/docextract"
	"google.golang.org/genai"
)

// Ensure Completer implements docextract.Completer at compile time.
var _ docextract.Completer = (*Completer)(nil)

// Completer implements docextract.Completer using Google Gemini.
type Completer struct {
	client *genai.Client
}

// NewCompleter creates a new Completer.
func NewCompleter(client *genai.Client) *Completer {
	return &Completer{client: client}
}

// ModelName returns the model portion of a provider identifier
// (e.g. "gemini/gemini-2.5-flash" → "gemini-2.5-flash").
func ModelName(provider string) string {
	if i := strings.LastIndex(provider, "/"); i != -1 {
		return provider[i+1:]
	}
	return provider
}

// BuildConfig maps a completion request onto Gemini generation settings.
// System messages become the system instruction; temperature and max
// tokens carry over when set.
func BuildConfig(req docextract.CompletionRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	var system []string
	for _, m := range req.Messages {
		if m.Role == docextract.RoleSystem {
			system = append(system, m.Content)
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}

	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}
	if req.MaxTokens != nil {
		config.MaxOutputTokens = int32(*req.MaxTokens)
	}

	return config
}

// BuildContents maps non-system messages onto Gemini content parts.
func BuildContents(req docextract.CompletionRequest) []*genai.Content {
	var contents []*genai.Content
	for _, m := range req.Messages {
		if m.Role == docextract.RoleSystem {
			continue
		}
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}

// Complete sends one generation request and returns the model's text and
// token usage.
func (c *Completer) Complete(ctx context.Context, req docextract.CompletionRequest) (*docextract.CompletionResponse, error) {
	result, err := c.client.Models.GenerateContent(ctx, ModelName(req.Provider), BuildContents(req), BuildConfig(req))
	if err != nil {
		return nil, docextract.Errorf(docextract.EUNAVAILABLE, "gemini request failed: %v", err)
	}
	if result == nil {
		return nil, docextract.Errorf(docextract.EINTERNAL, "gemini returned nil result")
	}

	resp := &docextract.CompletionResponse{Content: result.Text()}
	if result.UsageMetadata != nil {
		resp.Usage = docextract.Usage{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}
	return resp, nil
}
