package engagement

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/hermes"
	"github.com/MikeSquared-Agency/decoy/internal/oracle"
	"github.com/MikeSquared-Agency/decoy/internal/processor"
	"github.com/MikeSquared-Agency/decoy/internal/session"
	"github.com/MikeSquared-Agency/decoy/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// downOracle fails every call, so the machine runs entirely on fallbacks.
type downOracle struct{}

func (downOracle) CompleteText(context.Context, oracle.Profile, string, float64) (string, error) {
	return "", oracle.ErrNoBackend
}

func (downOracle) CompleteJSON(context.Context, oracle.Profile, string, float64, oracle.Result) error {
	return oracle.ErrNoBackend
}

type countingReporter struct {
	mu    sync.Mutex
	calls int
}

func (r *countingReporter) Report(context.Context, *conversation.State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil
}

type panicEngine struct{}

func (panicEngine) Run(context.Context, *conversation.State) processor.Outcome {
	panic("boom")
}

func newTestService(engine Engine) *Service {
	mgr := session.NewManager(store.NewMemory(time.Hour), "memory", nil, discardLogger())
	return NewService(mgr, engine, nil, discardLogger())
}

func newFallbackService(r processor.Reporter) *Service {
	p := processor.New(downOracle{}, r, processor.Config{MaxTurns: 20}, nil, discardLogger())
	return newTestService(p)
}

func envelope(sessionID, text string, ts int64) Envelope {
	return Envelope{
		SessionID: sessionID,
		Message:   WireMessage{Sender: "scammer", Text: text, Timestamp: ts},
		Metadata:  map[string]any{"channel": "SMS", "locale": "IN", "attempt": 2},
	}
}

func TestHandleMessage_FirstContact(t *testing.T) {
	s := newFallbackService(nil)
	ctx := context.Background()

	reply, err := s.HandleMessage(ctx, envelope("s1", "Your account will be blocked today. Verify immediately.", 1000))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if reply.Status != StatusSuccess || reply.Reply != processor.FallbackReply(1) {
		t.Errorf("reply = %+v", reply)
	}

	st, err := s.Session(ctx, "s1")
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if !st.ScamDetected || st.TurnCount != 1 || len(st.History) != 2 {
		t.Errorf("state = %+v", st)
	}
	if st.Metadata["attempt"] != "2" || st.Metadata["channel"] != "SMS" {
		t.Errorf("metadata = %v", st.Metadata)
	}
}

func TestHandleMessage_HistoryOnFirstContact(t *testing.T) {
	s := newFallbackService(nil)
	env := envelope("s2", "Send the OTP now, urgent", 3000)
	env.ConversationHistory = []WireMessage{
		{Sender: "scammer", Text: "Hello from your bank", Timestamp: 1000},
		{Sender: "user", Text: "Which bank?", Timestamp: 2000},
	}

	if _, err := s.HandleMessage(context.Background(), env); err != nil {
		t.Fatal(err)
	}
	st, _ := s.Session(context.Background(), "s2")
	if st.TurnCount != 3 {
		t.Errorf("turn = %d, want 3", st.TurnCount)
	}
	if st.History[1].Sender != conversation.SenderAgent {
		t.Errorf("user label should map to agent, got %q", st.History[1].Sender)
	}
}

func TestHandleMessage_InvalidEnvelope(t *testing.T) {
	s := newFallbackService(nil)
	for _, env := range []Envelope{
		{Message: WireMessage{Text: "hi"}},
		{SessionID: "s", Message: WireMessage{Text: "  "}},
	} {
		if _, err := s.HandleMessage(context.Background(), env); !errors.Is(err, ErrInvalidEnvelope) {
			t.Errorf("err = %v, want ErrInvalidEnvelope", err)
		}
	}
}

func TestHandleMessage_PanicYieldsApologyAndDiscardsTurn(t *testing.T) {
	s := newTestService(panicEngine{})
	ctx := context.Background()

	reply, err := s.HandleMessage(ctx, envelope("s3", "urgent", 1))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if reply.Status != StatusSuccess || reply.Reply != processor.ErrorReply {
		t.Errorf("reply = %+v", reply)
	}
	if _, err := s.Session(ctx, "s3"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("failed turn must not be committed, got err=%v", err)
	}

	// The lock must have been released.
	done := make(chan struct{})
	go func() {
		s.HandleMessage(ctx, envelope("s3", "urgent", 2))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session stayed locked after a panic")
	}
}

func TestHandleMessage_ConcurrentTurnsSerialize(t *testing.T) {
	s := newFallbackService(nil)
	ctx := context.Background()
	const n = 12

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.HandleMessage(ctx, envelope("shared", "urgent reply now", int64(i))); err != nil {
				t.Errorf("HandleMessage: %v", err)
			}
		}()
	}
	wg.Wait()

	st, err := s.Session(ctx, "shared")
	if err != nil {
		t.Fatal(err)
	}
	if st.TurnCount != n {
		t.Errorf("turn = %d, want %d (lost update)", st.TurnCount, n)
	}
	if len(st.History) != 2*n {
		t.Errorf("history = %d messages, want %d", len(st.History), 2*n)
	}
}

func TestHandleMessage_ReportsOnceAcrossTurns(t *testing.T) {
	r := &countingReporter{}
	s := newFallbackService(r)
	ctx := context.Background()

	// Three artifacts in one message satisfies the fallback stop rule.
	s.HandleMessage(ctx, envelope("s4", "Urgent: pay scam@ybl or call 9123456780", 1))
	for i := 2; i <= 4; i++ {
		s.HandleMessage(ctx, envelope("s4", "hello?? verify", int64(i)))
	}

	if r.calls != 1 {
		t.Errorf("reporter called %d times", r.calls)
	}
	st, _ := s.Session(ctx, "s4")
	if !st.ReportSent || st.ShouldContinue {
		t.Errorf("reportSent=%v shouldContinue=%v", st.ReportSent, st.ShouldContinue)
	}
}

func TestHandleMessage_CancelledCallerStillCompletesTurn(t *testing.T) {
	s := newFallbackService(nil)
	ctx, cancel := context.WithCancel(context.Background())

	s.HandleMessage(ctx, envelope("s5", "urgent", 1))
	cancel()

	st, err := s.Session(context.Background(), "s5")
	if err != nil || st.TurnCount != 1 {
		t.Fatalf("state=%+v err=%v", st, err)
	}
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	events   []hermes.ReplyEvent
}

func (p *recordingPublisher) Publish(subject string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subjects = append(p.subjects, subject)
	p.events = append(p.events, data.(hermes.ReplyEvent))
	return nil
}

func TestInboundHandler(t *testing.T) {
	s := newFallbackService(nil)
	pub := &recordingPublisher{}
	handle := s.InboundHandler(context.Background(), pub)

	raw, _ := json.Marshal(envelope("n1", "Your card is blocked", 1))
	handle(hermes.SubjectInbound, "", raw)
	handle(hermes.SubjectInbound, "_INBOX.abc", raw)
	handle(hermes.SubjectInbound, "", []byte("not json"))
	bad, _ := json.Marshal(Envelope{SessionID: "n2"})
	handle(hermes.SubjectInbound, "", bad)

	if len(pub.events) != 3 {
		t.Fatalf("published %d events, want 3", len(pub.events))
	}
	if pub.subjects[0] != hermes.SubjectReply || pub.subjects[1] != "_INBOX.abc" {
		t.Errorf("subjects = %v", pub.subjects)
	}
	if pub.events[0].SessionID != "n1" || pub.events[0].Status != StatusSuccess || pub.events[0].Reply == "" {
		t.Errorf("event = %+v", pub.events[0])
	}
	if pub.events[2].Status != "error" {
		t.Errorf("invalid envelope status = %q", pub.events[2].Status)
	}
}
