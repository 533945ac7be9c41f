// Package llm talks to text-generation services that synthesize chart
// specs from a dataset preview.
package llm

import "context"

// Provider abstracts a text-generation service behind a single synchronous
// completion method.
type Provider interface {
	// Complete sends a prompt and returns the generated text.
	// Implementations must respect context cancellation.
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request describes a single completion request.
type Request struct {
	Prompt string

	// Model overrides the provider's default model when set.
	Model string
}

// Response holds the result of a completion call.
type Response struct {
	// Content is the text returned by the model.
	Content string

	// Model is the model that served the request.
	Model string

	Usage Usage
}

// Usage tracks prompt and output token counts for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
}
