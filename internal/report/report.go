// Package report delivers the final intelligence summary for a session to the
// remote collector, once, and fans the delivery out to optional sinks.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/observe"
)

var ErrAlreadySent = errors.New("report: already sent for session")

// Payload is the collector's wire format.
type Payload struct {
	SessionID              string                    `json:"sessionId"`
	ScamDetected           bool                      `json:"scamDetected"`
	TotalMessagesExchanged int                       `json:"totalMessagesExchanged"`
	ExtractedIntelligence  conversation.Intelligence `json:"extractedIntelligence"`
	AgentNotes             string                    `json:"agentNotes"`
}

// Delivery is a payload the collector accepted.
type Delivery struct {
	ID          uuid.UUID
	Payload     Payload
	DeliveredAt time.Time
}

// Notifier receives every accepted delivery, after Report has returned.
// Failures are logged, never propagated.
type Notifier interface {
	Notify(ctx context.Context, d Delivery) error
}

type NotifierFunc func(ctx context.Context, d Delivery) error

func (f NotifierFunc) Notify(ctx context.Context, d Delivery) error { return f(ctx, d) }

// Archiver stores accepted reports, keyed by delivery ID.
type Archiver interface {
	RecordReport(ctx context.Context, id uuid.UUID, sessionID string, payload any) error
}

// Archive adapts an Archiver into a Notifier.
func Archive(a Archiver) Notifier {
	return NotifierFunc(func(ctx context.Context, d Delivery) error {
		return a.RecordReport(ctx, d.ID, d.Payload.SessionID, d.Payload)
	})
}

// Build flattens the session state into the collector payload.
func Build(st *conversation.State) Payload {
	intel := st.Intelligence.Clone()
	for _, l := range []*[]string{&intel.BankAccounts, &intel.UPIIDs, &intel.PhishingLinks, &intel.PhoneNumbers, &intel.SuspiciousKeywords} {
		if *l == nil {
			*l = []string{}
		}
	}
	return Payload{
		SessionID:              st.SessionID,
		ScamDetected:           st.ScamDetected,
		TotalMessagesExchanged: st.TurnCount,
		ExtractedIntelligence:  intel,
		AgentNotes:             strings.Join(st.Notes, " | "),
	}
}

type Dispatcher struct {
	url       string
	client    *http.Client
	notifiers []Notifier
	metrics   *observe.Metrics
	logger    *slog.Logger

	mu   sync.Mutex
	sent map[string]struct{}

	pending sync.WaitGroup
}

// NewDispatcher posts to url with the given timeout. An empty url skips the
// collector and only runs the notifiers.
func NewDispatcher(url string, timeout time.Duration, metrics *observe.Metrics, logger *slog.Logger, notifiers ...Notifier) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		url:       url,
		client:    &http.Client{Timeout: timeout},
		notifiers: notifiers,
		metrics:   metrics,
		logger:    logger,
		sent:      make(map[string]struct{}),
	}
}

// Report delivers st's summary. It refuses sessions already reported, either
// by this process or as recorded on the state.
func (d *Dispatcher) Report(ctx context.Context, st *conversation.State) error {
	if st.ReportSent || d.wasSent(st.SessionID) {
		d.metrics.RecordReport(ctx, "duplicate")
		return ErrAlreadySent
	}

	payload := Build(st)
	if d.url != "" {
		if err := d.post(ctx, payload); err != nil {
			d.metrics.RecordReport(ctx, "failed")
			return err
		}
	}

	d.mu.Lock()
	d.sent[st.SessionID] = struct{}{}
	d.mu.Unlock()
	d.metrics.RecordReport(ctx, "sent")

	delivery := Delivery{ID: uuid.New(), Payload: payload, DeliveredAt: time.Now().UTC()}
	d.logger.Info("report delivered",
		"session_id", st.SessionID,
		"report_id", delivery.ID,
		"bank_accounts", len(payload.ExtractedIntelligence.BankAccounts),
		"upi_ids", len(payload.ExtractedIntelligence.UPIIDs),
		"phone_numbers", len(payload.ExtractedIntelligence.PhoneNumbers),
	)
	d.notify(ctx, delivery)
	return nil
}

func (d *Dispatcher) wasSent(sessionID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.sent[sessionID]
	return ok
}

func (d *Dispatcher) post(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("post report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("collector returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// notify fans the delivery out in the background so sinks never hold up the
// turn; they get their own deadline, detached from the caller's.
func (d *Dispatcher) notify(ctx context.Context, delivery Delivery) {
	if len(d.notifiers) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.client.Timeout)

	d.pending.Add(1)
	go func() {
		defer d.pending.Done()
		defer cancel()

		var g errgroup.Group
		for _, n := range d.notifiers {
			g.Go(func() error {
				if err := n.Notify(ctx, delivery); err != nil {
					d.logger.Warn("report notifier failed", "session_id", delivery.Payload.SessionID, "error", err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}()
}

// Wait blocks until background notifications have finished.
func (d *Dispatcher) Wait() {
	d.pending.Wait()
}
