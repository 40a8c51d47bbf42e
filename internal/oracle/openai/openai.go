// Package openai is an oracle backend for any OpenAI-compatible chat
// completions endpoint. The default deployment points it at Groq.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/MikeSquared-Agency/decoy/internal/oracle"
)

// Backend implements oracle.Backend with one model per profile.
type Backend struct {
	client oai.Client
	models map[oracle.Profile]string
	name   string
}

type config struct {
	baseURL    string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
	name       string
}

type Option func(*config)

func WithBaseURL(url string) Option { return func(c *config) { c.baseURL = url } }

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option { return func(c *config) { c.timeout = d } }

// WithMaxRetries sets SDK-level retries on transient errors. Default 1.
func WithMaxRetries(n int) Option { return func(c *config) { c.maxRetries = n } }

func WithHTTPClient(hc *http.Client) Option { return func(c *config) { c.httpClient = hc } }

// WithName overrides the backend name used in logs and metrics. Default "openai".
func WithName(name string) Option { return func(c *config) { c.name = name } }

// New builds a backend. Every profile in models must name a model.
func New(apiKey string, models map[oracle.Profile]string, opts ...Option) (*Backend, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}
	for _, p := range oracle.Profiles {
		if models[p] == "" {
			return nil, fmt.Errorf("openai: no model for profile %q", p)
		}
	}

	cfg := &config{maxRetries: 1, name: "openai"}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(cfg.maxRetries),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	switch {
	case cfg.httpClient != nil:
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	case cfg.timeout > 0:
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	m := make(map[oracle.Profile]string, len(models))
	for k, v := range models {
		m[k] = v
	}
	return &Backend{client: oai.NewClient(reqOpts...), models: m, name: cfg.name}, nil
}

func (b *Backend) Name() string { return b.name }

// Model returns the model configured for a profile.
func (b *Backend) Model(p oracle.Profile) string { return b.models[p] }

func (b *Backend) Complete(ctx context.Context, req oracle.Request) (string, error) {
	model, ok := b.models[req.Profile]
	if !ok {
		return "", fmt.Errorf("openai: unknown profile %q", req.Profile)
	}

	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(model),
		Messages:    []oai.ChatCompletionMessageParamUnion{oai.UserMessage(req.Prompt)},
		Temperature: param.NewOpt(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}
