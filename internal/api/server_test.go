package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/decoy/internal/campaign"
	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/engagement"
	"github.com/MikeSquared-Agency/decoy/internal/store"
)

type fakeEngagement struct {
	last     engagement.Envelope
	sessions map[string]*conversation.State
}

func (f *fakeEngagement) HandleMessage(_ context.Context, env engagement.Envelope) (engagement.Reply, error) {
	if err := env.Validate(); err != nil {
		return engagement.Reply{}, err
	}
	f.last = env
	return engagement.Reply{Status: engagement.StatusSuccess, Reply: "Which bank is this?"}, nil
}

func (f *fakeEngagement) Session(_ context.Context, id string) (*conversation.State, error) {
	st, ok := f.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return st, nil
}

func (f *fakeEngagement) ActiveSessions(context.Context) (int, error) {
	return len(f.sessions), nil
}

func newTestServer() (*Server, *fakeEngagement) {
	fe := &fakeEngagement{sessions: map[string]*conversation.State{
		"known": conversation.New("known", conversation.Message{Sender: conversation.SenderScammer, Text: "hi", Timestamp: 1}, nil, nil),
	}}
	srv := NewServer(8000, fe, Options{
		APIKey:           "secret",
		OracleConfigured: true,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte("# metrics\n"))
		}),
	})
	return srv, fe
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected status healthy, got %v", body["status"])
	}
	if body["active_sessions"] != float64(1) || body["oracle_configured"] != true {
		t.Errorf("unexpected body %v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest("GET", "/api/v1/decoy/status", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["agent"] != "decoy" {
		t.Errorf("expected agent decoy, got %q", body["agent"])
	}
}

func TestHoneypotEndpoint(t *testing.T) {
	srv, fe := newTestServer()

	body := `{"sessionId":"abc","message":{"sender":"scammer","text":"Your account is blocked","timestamp":1700000000000},
		"conversationHistory":[],"metadata":{"channel":"SMS","language":"English"}}`
	req := httptest.NewRequest("POST", "/api/honeypot", strings.NewReader(body))
	req.Header.Set("x-api-key", "secret")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp engagement.Reply
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "success" || resp.Reply != "Which bank is this?" {
		t.Errorf("unexpected reply %+v", resp)
	}
	if fe.last.SessionID != "abc" || fe.last.Message.Timestamp != 1700000000000 || fe.last.Metadata["channel"] != "SMS" {
		t.Errorf("envelope not passed through: %+v", fe.last)
	}
}

func TestHoneypotEndpoint_Auth(t *testing.T) {
	srv, _ := newTestServer()

	for _, key := range []string{"", "wrong"} {
		req := httptest.NewRequest("POST", "/api/honeypot", strings.NewReader(`{}`))
		if key != "" {
			req.Header.Set("x-api-key", key)
		}
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("key %q: expected 401, got %d", key, w.Code)
		}
	}
}

func TestHoneypotEndpoint_BadRequests(t *testing.T) {
	srv, _ := newTestServer()

	for _, body := range []string{`not json`, `{"sessionId":"x","message":{"text":""}}`} {
		req := httptest.NewRequest("POST", "/api/honeypot", strings.NewReader(body))
		req.Header.Set("x-api-key", "secret")
		w := httptest.NewRecorder()
		srv.router.ServeHTTP(w, req)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}

func TestAuthDisabledWithoutKey(t *testing.T) {
	srv := NewServer(8000, &fakeEngagement{sessions: map[string]*conversation.State{}}, Options{})

	req := httptest.NewRequest("POST", "/api/honeypot",
		strings.NewReader(`{"sessionId":"a","message":{"sender":"scammer","text":"hi","timestamp":1}}`))
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestSessionEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest("GET", "/sessions/known", nil)
	req.Header.Set("x-api-key", "secret")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var st conversation.State
	if err := json.NewDecoder(w.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.SessionID != "known" || st.TurnCount != 1 {
		t.Errorf("unexpected state %+v", st)
	}

	req = httptest.NewRequest("GET", "/sessions/missing", nil)
	req.Header.Set("x-api-key", "secret")
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/sessions/known", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without key, got %d", w.Code)
	}
}

type fakeCampaigns []campaign.Campaign

func (f fakeCampaigns) Campaigns(context.Context) ([]campaign.Campaign, error) {
	return f, nil
}

func TestCampaignsEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest("GET", "/api/v1/campaigns", nil)
	req.Header.Set("x-api-key", "secret")
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusNotImplemented {
		t.Errorf("expected 501 without archive, got %d", w.Code)
	}

	srv = NewServer(8000, &fakeEngagement{}, Options{Campaigns: fakeCampaigns{
		{Sessions: []string{"a", "b"}, Shared: []string{"x@ybl"}},
	}})
	req = httptest.NewRequest("GET", "/api/v1/campaigns", nil)
	w = httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Campaigns []campaign.Campaign `json:"campaigns"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Campaigns) != 1 || body.Campaigns[0].Shared[0] != "x@ybl" {
		t.Errorf("campaigns = %+v", body.Campaigns)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "# metrics") {
		t.Errorf("metrics: %d %q", w.Code, w.Body.String())
	}
}

func TestNotFoundEndpoint(t *testing.T) {
	srv, _ := newTestServer()

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}
