package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/engagement"
	"github.com/MikeSquared-Agency/decoy/internal/store"
)

// Client drives a running decoy over its HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a Client for the server at baseURL.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// HandleMessage posts one envelope and decodes the reply. A 400 maps to
// engagement.ErrInvalidEnvelope.
func (c *Client) HandleMessage(ctx context.Context, env engagement.Envelope) (engagement.Reply, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return engagement.Reply{}, fmt.Errorf("marshal: %w", err)
	}

	var reply engagement.Reply
	status, err := c.do(ctx, http.MethodPost, "/api/honeypot", body, &reply)
	if err != nil {
		return engagement.Reply{}, err
	}
	switch status {
	case http.StatusOK:
		return reply, nil
	case http.StatusBadRequest:
		return engagement.Reply{}, engagement.ErrInvalidEnvelope
	default:
		return engagement.Reply{}, fmt.Errorf("honeypot returned %d", status)
	}
}

// Session fetches the stored state. A 404 maps to store.ErrNotFound.
func (c *Client) Session(ctx context.Context, sessionID string) (*conversation.State, error) {
	var st conversation.State
	status, err := c.do(ctx, http.MethodGet, "/sessions/"+url.PathEscape(sessionID), nil, &st)
	if err != nil {
		return nil, err
	}
	switch status {
	case http.StatusOK:
		return &st, nil
	case http.StatusNotFound:
		return nil, store.ErrNotFound
	default:
		return nil, fmt.Errorf("sessions returned %d", status)
	}
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, out any) (int, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode: %w", err)
	}
	return resp.StatusCode, nil
}
