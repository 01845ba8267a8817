// Package llm provides the client for the external text-generation service.
// Callers treat the returned text as untrusted: it is decoded against a
// declared schema before use, with a documented fallback on failure.
package llm

import "context"

// Client is the generation call contract. Implementations must be safe for
// concurrent use by independent runs.
type Client interface {
	// Generate sends a system/user prompt pair and returns the raw response
	// text. The response carries no schema guarantee.
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// Model returns the underlying model identifier, for logs.
	Model() string
}

// GenerateFunc adapts a bare function to the Client interface. Used by tests
// to script responses.
type GenerateFunc func(ctx context.Context, systemPrompt, userPrompt string) (string, error)

func (f GenerateFunc) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f(ctx, systemPrompt, userPrompt)
}

func (f GenerateFunc) Model() string { return "func" }
