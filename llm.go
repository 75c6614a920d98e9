package docextract

import "context"

// Chat message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one turn in a chat completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes one LM call. Provider identifies both the
// adapter and the model (e.g. "openai/gpt-4o"). Temperature and MaxTokens
// are optional; adapters drop them for models that reject sampling
// parameters.
type CompletionRequest struct {
	Provider    string
	Messages    []Message
	Temperature *float64
	MaxTokens   *int
}

// CompletionResponse carries the LM's text and token accounting.
type CompletionResponse struct {
	Content string
	Usage   Usage
}

// Usage aggregates token counts across LM calls.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Add accumulates another usage record.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Completer is the capability the pipeline requires from a language model
// provider. Implementations are safe for concurrent use.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// DefaultExtractionInstruction directs the extraction model to produce
// clean, structure-preserving markdown from documentation pages.
const DefaultExtractionInstruction = `Extract the complete API documentation information while preserving its original structure and content.

Focus on extracting:
1. All function and method definitions with their complete signatures
2. All parameters, their types, and descriptions
3. Return values and their types
4. Class and object definitions with their properties and methods
5. Code examples and usage patterns
6. Important notes, warnings, and best practices
7. Any authentication or configuration requirements

Format the output as clean markdown with:
- Code blocks for all code examples with appropriate syntax highlighting
- Function/method signatures in their own code blocks
- Clear hierarchical headers for organization
- Tables for parameter descriptions where appropriate
- Preserved original structure and terminology

Exclude only clearly irrelevant elements like:
- Navigation menus and breadcrumbs
- Search bars and version selectors
- Footer content unrelated to the API
- Advertisements or promotional content
- UI elements that don't contribute to understanding the API

The goal is to create a comprehensive, well-structured representation of the API
that preserves all technical details regardless of the programming language or API type.`

// ExtractorConfig configures the extraction model.
type ExtractorConfig struct {
	Provider    string
	Temperature float64
	Instruction string
}

// DefaultExtractorConfig returns the standard extraction model settings.
func DefaultExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		Provider:    "openai/gpt-4o",
		Temperature: 0.1,
		Instruction: DefaultExtractionInstruction,
	}
}

// Validate returns an error if the configuration is invalid.
func (c ExtractorConfig) Validate() error {
	if c.Provider == "" {
		return Errorf(EINVALID, "extractor provider required")
	}
	if c.Temperature < 0 {
		return Errorf(EINVALID, "extractor temperature must not be negative")
	}
	if c.Instruction == "" {
		return Errorf(EINVALID, "extractor instruction required")
	}
	return nil
}

// FilterConfig configures the relevance-filter model. Required only when
// filtering is enabled.
type FilterConfig struct {
	Provider    string
	Temperature float64
}

// DefaultFilterConfig returns the standard filter model settings.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Provider:    "openai/gpt-4o-mini",
		Temperature: 0,
	}
}

// Validate returns an error if the configuration is invalid.
func (c FilterConfig) Validate() error {
	if c.Provider == "" {
		return Errorf(EINVALID, "filter provider required")
	}
	if c.Temperature < 0 {
		return Errorf(EINVALID, "filter temperature must not be negative")
	}
	return nil
}
