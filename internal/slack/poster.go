package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/decoy/internal/report"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// Notify posts the report summary and threads the agent notes under it.
func (p *Poster) Notify(ctx context.Context, d report.Delivery) error {
	ts, err := p.PostReport(ctx, d)
	if err != nil {
		return err
	}
	if d.Payload.AgentNotes == "" {
		return nil
	}
	return p.PostThread(ctx, ts, formatNotes(d.Payload.AgentNotes))
}

// PostReport posts a summary of a delivered report and returns the message ts.
func (p *Poster) PostReport(ctx context.Context, d report.Delivery) (string, error) {
	text := formatReportMessage(d)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": fmt.Sprintf("Report `%s` delivered %s", d.ID, d.DeliveredAt.Format(time.RFC3339)),
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	respBody, err := p.post(ctx, body)
	if err != nil {
		return "", err
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted report to slack", "ts", slackResp.TS, "session_id", d.Payload.SessionID)
	return slackResp.TS, nil
}

// PostThread posts a threaded reply to a message. An empty threadTS posts a
// standalone message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	msg := map[string]any{
		"channel": p.channel,
		"text":    text,
	}
	if threadTS != "" {
		msg["thread_ts"] = threadTS
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = p.post(ctx, body)
	return err
}

func (p *Poster) post(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return respBody, nil
}

func formatReportMessage(d report.Delivery) string {
	var sb strings.Builder
	pl := d.Payload
	intel := pl.ExtractedIntelligence

	fmt.Fprintf(&sb, "*Scam session reported:* %s\n", pl.SessionID)
	fmt.Fprintf(&sb, "*Messages exchanged:* %d\n\n", pl.TotalMessagesExchanged)

	sections := []struct {
		title string
		items []string
	}{
		{"Bank accounts", intel.BankAccounts},
		{"UPI IDs", intel.UPIIDs},
		{"Phone numbers", intel.PhoneNumbers},
		{"Links", intel.PhishingLinks},
	}
	found := false
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		found = true
		fmt.Fprintf(&sb, "*%s (%d):* %s\n", s.title, len(s.items), strings.Join(s.items, ", "))
	}
	if !found {
		sb.WriteString("_No payment or contact details extracted._\n")
	}
	if len(intel.SuspiciousKeywords) > 0 {
		fmt.Fprintf(&sb, "*Keywords:* %s\n", strings.Join(intel.SuspiciousKeywords, ", "))
	}

	return strings.TrimRight(sb.String(), "\n")
}

func formatNotes(notes string) string {
	parts := strings.Split(notes, " | ")
	for i, n := range parts {
		parts[i] = "• " + n
	}
	return strings.Join(parts, "\n")
}
