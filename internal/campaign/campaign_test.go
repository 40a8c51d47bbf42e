package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/report"
)

func TestLink_TransitiveGroups(t *testing.T) {
	entries := []Entry{
		{SessionID: "a", Intelligence: conversation.Intelligence{UPIIDs: []string{"win@paytm"}}},
		{SessionID: "b", Intelligence: conversation.Intelligence{UPIIDs: []string{"win@paytm"}, PhoneNumbers: []string{"+919876543210"}}},
		{SessionID: "c", Intelligence: conversation.Intelligence{PhoneNumbers: []string{"+919876543210"}}},
		{SessionID: "d", Intelligence: conversation.Intelligence{PhishingLinks: []string{"http://x.test"}}},
		{SessionID: "e", Intelligence: conversation.Intelligence{PhishingLinks: []string{"http://x.test"}}},
		{SessionID: "f", Intelligence: conversation.Intelligence{UPIIDs: []string{"lonely@ybl"}}},
	}

	got := Link(entries)
	if len(got) != 2 {
		t.Fatalf("campaigns = %d, want 2: %+v", len(got), got)
	}

	first := got[0]
	if len(first.Sessions) != 3 || first.Sessions[0] != "a" || first.Sessions[2] != "c" {
		t.Errorf("largest campaign sessions = %v", first.Sessions)
	}
	if len(first.Shared) != 2 || first.Shared[0] != "+919876543210" || first.Shared[1] != "win@paytm" {
		t.Errorf("largest campaign shared = %v", first.Shared)
	}

	second := got[1]
	if len(second.Sessions) != 2 || second.Shared[0] != "http://x.test" {
		t.Errorf("second campaign = %+v", second)
	}
}

func TestLink_KeywordsDoNotLink(t *testing.T) {
	entries := []Entry{
		{SessionID: "a", Intelligence: conversation.Intelligence{SuspiciousKeywords: []string{"urgent"}}},
		{SessionID: "b", Intelligence: conversation.Intelligence{SuspiciousKeywords: []string{"urgent"}}},
	}
	if got := Link(entries); len(got) != 0 {
		t.Errorf("keywords should not link sessions: %+v", got)
	}
}

func TestLink_MaskedAccountsDoNotLink(t *testing.T) {
	// 123456789012 and 123499999012 mask to the same value.
	entries := []Entry{
		{SessionID: "a", Intelligence: conversation.Intelligence{BankAccounts: []string{"1234XXXX9012"}}},
		{SessionID: "b", Intelligence: conversation.Intelligence{BankAccounts: []string{"1234XXXX9012"}}},
	}
	if got := Link(entries); len(got) != 0 {
		t.Errorf("masked accounts should not link sessions: %+v", got)
	}
}

func TestLink_Empty(t *testing.T) {
	if got := Link(nil); got != nil {
		t.Errorf("Link(nil) = %v", got)
	}
}

type fakeSource struct {
	reports []json.RawMessage
	err     error
	limit   int
}

func (f *fakeSource) RecentReports(_ context.Context, limit int) ([]json.RawMessage, error) {
	f.limit = limit
	return f.reports, f.err
}

func mustPayload(t *testing.T, p report.Payload) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestFinder_Campaigns(t *testing.T) {
	src := &fakeSource{reports: []json.RawMessage{
		mustPayload(t, report.Payload{SessionID: "s1", ExtractedIntelligence: conversation.Intelligence{UPIIDs: []string{"x@ybl"}}}),
		json.RawMessage(`not json`),
		mustPayload(t, report.Payload{SessionID: "s2", ExtractedIntelligence: conversation.Intelligence{UPIIDs: []string{"x@ybl"}}}),
	}}
	f := NewFinder(src, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := f.Campaigns(context.Background())
	if err != nil {
		t.Fatalf("Campaigns: %v", err)
	}
	if src.limit != DefaultWindow {
		t.Errorf("limit = %d, want %d", src.limit, DefaultWindow)
	}
	if len(got) != 1 || len(got[0].Sessions) != 2 {
		t.Errorf("campaigns = %+v", got)
	}
}

func TestFinder_SourceError(t *testing.T) {
	f := NewFinder(&fakeSource{err: errors.New("db down")}, 10, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := f.Campaigns(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
