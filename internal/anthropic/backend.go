package anthropic

import (
	"context"

	"github.com/MikeSquared-Agency/decoy/internal/oracle"
)

const (
	textSystemPrompt = "You write short, natural chat messages exactly as instructed. Output only the message text."
	jsonSystemPrompt = "You are a precise analysis component. Respond with a single valid JSON object and nothing else."
)

// Backend exposes the client as an oracle backend. The same model serves
// every profile.
type Backend struct {
	client *Client
}

func NewBackend(c *Client) *Backend {
	return &Backend{client: c}
}

func (b *Backend) Name() string { return "anthropic" }

func (b *Backend) Complete(ctx context.Context, req oracle.Request) (string, error) {
	system := textSystemPrompt
	if req.JSON {
		system = jsonSystemPrompt
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return b.client.Complete(ctx, system, []Message{{Role: "user", Content: req.Prompt}}, maxTokens, req.Temperature)
}
