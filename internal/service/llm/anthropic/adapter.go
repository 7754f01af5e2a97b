// Package anthropic provides an Anthropic Messages API adapter for note
// generation.
package anthropic

import (
	"context"

	anthropic "github.com/anthropics/anthropic-sdk-go"

	"ai-clinical-scribe-service/internal/errs"
	"ai-clinical-scribe-service/internal/service/llm"
)

// Adapter implements llm.Adapter using the Anthropic SDK.
type Adapter struct {
	client anthropic.Client
}

// New creates a new Anthropic adapter.
// Requires ANTHROPIC_API_KEY environment variable to be set.
func New() *Adapter {
	return &Adapter{client: anthropic.NewClient()}
}

// Generate sends the prompt as a single user message and returns the first
// text block of the response.
func (a *Adapter) Generate(ctx context.Context, prompt string, params llm.Params) (string, error) {
	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(params.Model),
		MaxTokens: int64(params.MaxOutputTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if params.Temperature > 0 {
		req.Temperature = anthropic.Float(params.Temperature)
	}
	if params.TopP > 0 {
		req.TopP = anthropic.Float(params.TopP)
	}
	if params.TopK > 0 {
		req.TopK = anthropic.Int(int64(params.TopK))
	}

	msg, err := a.client.Messages.New(ctx, req)
	if err != nil {
		return "", errs.Integration("generation engine call", err)
	}
	if len(msg.Content) == 0 {
		return "", errs.Integrationf("generation engine returned empty response")
	}
	return msg.Content[0].Text, nil
}
