// Package llm defines the interface for text-generation adapters used by
// note generation.
package llm

import "context"

// Params are the sampling parameters for one generation call.
type Params struct {
	Model           string
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

// Adapter defines the interface for LLM providers.
type Adapter interface {
	// Generate sends a prompt and returns the model's raw text response.
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}
