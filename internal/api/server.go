package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/decoy/internal/campaign"
	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/engagement"
	"github.com/MikeSquared-Agency/decoy/internal/observe"
	"github.com/MikeSquared-Agency/decoy/internal/store"
)

const maxBodyBytes = 1 << 20

// Engagement is what the HTTP shell drives.
type Engagement interface {
	HandleMessage(ctx context.Context, env engagement.Envelope) (engagement.Reply, error)
	Session(ctx context.Context, sessionID string) (*conversation.State, error)
	ActiveSessions(ctx context.Context) (int, error)
}

// Campaigns links reported sessions that share identifiers.
type Campaigns interface {
	Campaigns(ctx context.Context) ([]campaign.Campaign, error)
}

type Options struct {
	// APIKey guards the message and session routes; empty disables the check.
	APIKey           string
	OracleConfigured bool
	Metrics          *observe.Metrics
	MetricsHandler   http.Handler
	// Campaigns is nil unless reports are archived.
	Campaigns Campaigns
}

type Server struct {
	router *chi.Mux
	svc    Engagement
	opts   Options
	http   *http.Server
}

func NewServer(port int, svc Engagement, opts Options) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(observe.Middleware(opts.Metrics))

	s := &Server{
		router: router,
		svc:    svc,
		opts:   opts,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/decoy/status", s.status)
	if opts.MetricsHandler != nil {
		router.Handle("/metrics", opts.MetricsHandler)
	}

	router.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Post("/api/honeypot", s.handleMessage)
		r.Get("/sessions/{sessionID}", s.getSession)
		r.Get("/api/v1/campaigns", s.listCampaigns)
	})

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start() error {
	slog.Info("API server starting", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey != "" {
			got := r.Header.Get("x-api-key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.APIKey)) != 1 {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid API key"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	n, err := s.svc.ActiveSessions(r.Context())
	if err != nil {
		slog.Warn("count sessions", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "degraded",
			"active_sessions":   0,
			"oracle_configured": s.opts.OracleConfigured,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"active_sessions":   n,
		"oracle_configured": s.opts.OracleConfigured,
	})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"agent":  "decoy",
		"status": "engaging",
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var env engagement.Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&env); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body: " + err.Error()})
		return
	}

	reply, err := s.svc.HandleMessage(r.Context(), env)
	if errors.Is(err, engagement.ErrInvalidEnvelope) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
		return
	}
	if err != nil {
		slog.Error("handle message", "session_id", env.SessionID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	st, err := s.svc.Session(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Session not found"})
		return
	}
	if err != nil {
		slog.Error("load session", "session_id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) listCampaigns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Campaigns == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"detail": "campaign linking requires the postgres session backend"})
		return
	}
	campaigns, err := s.opts.Campaigns.Campaigns(r.Context())
	if err != nil {
		slog.Error("link campaigns", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "internal error"})
		return
	}
	if campaigns == nil {
		campaigns = []campaign.Campaign{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"campaigns": campaigns})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
