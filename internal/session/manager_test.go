package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager() *Manager {
	return NewManager(store.NewMemory(time.Hour), "memory", nil, discardLogger())
}

func msg(text string, ts int64) conversation.Message {
	return conversation.Message{Sender: conversation.SenderScammer, Text: text, Timestamp: ts}
}

func TestGetOrCreate_FirstAndRepeatContact(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	h, err := m.GetOrCreate(ctx, "s1", msg("hello", 1), nil, map[string]string{"channel": "SMS"})
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if !h.Created || h.State.TurnCount != 1 || !h.State.ShouldContinue || h.State.ReportSent {
		t.Fatalf("unexpected fresh state: created=%v %+v", h.Created, h.State)
	}
	h.State.Reply = "who is this?"
	if err := m.Commit(ctx, h); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if h.State != nil {
		t.Error("handle state must be cleared after commit")
	}

	h2, err := m.GetOrCreate(ctx, "s1", msg("your account is blocked", 2), nil, nil)
	if err != nil {
		t.Fatalf("GetOrCreate repeat: %v", err)
	}
	if h2.Created {
		t.Error("expected existing session")
	}
	if h2.State.TurnCount != 2 || len(h2.State.History) != 2 || h2.State.CurrentMessage.Text != "your account is blocked" {
		t.Errorf("unexpected resumed state: %+v", h2.State)
	}
	if h2.State.Reply != "who is this?" || h2.State.Metadata["channel"] != "SMS" {
		t.Errorf("committed fields not persisted: %+v", h2.State)
	}
	m.Release(h2)
}

func TestRelease_DiscardsMutations(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	h, _ := m.GetOrCreate(ctx, "s1", msg("one", 1), nil, nil)
	_ = m.Commit(ctx, h)

	h, _ = m.GetOrCreate(ctx, "s1", msg("two", 2), nil, nil)
	h.State.ScamDetected = true
	m.Release(h)

	st, err := m.Get(ctx, "s1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.ScamDetected || st.TurnCount != 1 {
		t.Errorf("released turn leaked into store: %+v", st)
	}

	if err := m.Commit(ctx, h); !errors.Is(err, ErrHandleClosed) {
		t.Errorf("expected ErrHandleClosed, got %v", err)
	}
}

func TestGetOrCreate_SerializesSameSession(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	first, err := m.GetOrCreate(ctx, "s1", msg("one", 1), nil, nil)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	acquired := make(chan *Handle)
	go func() {
		h, err := m.GetOrCreate(ctx, "s1", msg("two", 2), nil, nil)
		if err != nil {
			t.Errorf("second GetOrCreate: %v", err)
			close(acquired)
			return
		}
		acquired <- h
	}()

	select {
	case <-acquired:
		t.Fatal("second turn must wait for the first to commit")
	case <-time.After(50 * time.Millisecond):
	}

	if err := m.Commit(ctx, first); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	select {
	case h := <-acquired:
		if h == nil {
			t.Fatal("second turn failed")
		}
		if h.State.TurnCount != 2 || len(h.State.History) != 2 {
			t.Errorf("second turn did not see first commit: %+v", h.State)
		}
		m.Release(h)
	case <-time.After(time.Second):
		t.Fatal("second turn never acquired the session")
	}
}

func TestGetOrCreate_ConcurrentTurnsAllApply(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := m.GetOrCreate(ctx, "busy", msg("ping", int64(i)), nil, nil)
			if err != nil {
				t.Errorf("GetOrCreate: %v", err)
				return
			}
			h.State.Intelligence.AddKeywords("ping")
			if err := m.Commit(ctx, h); err != nil {
				t.Errorf("Commit: %v", err)
			}
		}(i)
	}
	wg.Wait()

	st, err := m.Get(ctx, "busy")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if st.TurnCount != n || len(st.History) != n {
		t.Errorf("expected %d turns recorded, got turn=%d history=%d", n, st.TurnCount, len(st.History))
	}
	if m.locks.size() != 0 {
		t.Errorf("expected lock table to drain, has %d entries", m.locks.size())
	}
}

func TestGetOrCreate_DifferentSessionsDoNotBlock(t *testing.T) {
	ctx := context.Background()
	m := newTestManager()

	a, _ := m.GetOrCreate(ctx, "a", msg("x", 1), nil, nil)
	defer m.Release(a)

	done := make(chan struct{})
	go func() {
		b, err := m.GetOrCreate(ctx, "b", msg("y", 1), nil, nil)
		if err == nil {
			m.Release(b)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent session blocked")
	}
}

func TestGetOrCreate_ContextCancelledWhileWaiting(t *testing.T) {
	m := newTestManager()

	h, _ := m.GetOrCreate(context.Background(), "s1", msg("x", 1), nil, nil)
	defer m.Release(h)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := m.GetOrCreate(ctx, "s1", msg("y", 2), nil, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

type failingStore struct{ store.Store }

func (failingStore) Load(context.Context, string) (*conversation.State, error) {
	return nil, errors.New("connection refused")
}

func TestGetOrCreate_LoadErrorReleasesLock(t *testing.T) {
	m := NewManager(failingStore{}, "broken", nil, discardLogger())

	if _, err := m.GetOrCreate(context.Background(), "s1", msg("x", 1), nil, nil); err == nil {
		t.Fatal("expected load error")
	}
	if m.locks.size() != 0 {
		t.Error("lock must be released after a load error")
	}
}

func TestGetOrCreate_CallerHistorySeedsTurnCount(t *testing.T) {
	m := newTestManager()
	history := []conversation.Message{msg("earlier", 1), {Sender: conversation.SenderAgent, Text: "reply", Timestamp: 2}}

	h, err := m.GetOrCreate(context.Background(), "seeded", msg("now", 3), history, nil)
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	defer m.Release(h)

	if h.State.TurnCount != 3 || len(h.State.History) != 3 {
		t.Errorf("expected turn 3 with 3 history messages, got %d/%d", h.State.TurnCount, len(h.State.History))
	}
}
