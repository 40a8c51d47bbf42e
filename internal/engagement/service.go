// Package engagement turns an inbound envelope into a reply: it claims the
// session, runs the turn machine, commits, and guarantees that a plausible
// reply comes back even when the turn itself fails.
package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/observe"
	"github.com/MikeSquared-Agency/decoy/internal/processor"
	"github.com/MikeSquared-Agency/decoy/internal/session"
)

// Engine runs one turn over a session's state.
type Engine interface {
	Run(ctx context.Context, st *conversation.State) processor.Outcome
}

type Service struct {
	sessions *session.Manager
	engine   Engine
	metrics  *observe.Metrics
	logger   *slog.Logger
}

func NewService(sessions *session.Manager, engine Engine, metrics *observe.Metrics, logger *slog.Logger) *Service {
	return &Service{sessions: sessions, engine: engine, metrics: metrics, logger: logger}
}

// HandleMessage processes one inbound message. The only error it returns is
// ErrInvalidEnvelope; every other failure is answered with ErrorReply.
func (s *Service) HandleMessage(ctx context.Context, env Envelope) (Reply, error) {
	if err := env.Validate(); err != nil {
		return Reply{}, err
	}
	start := time.Now()

	h, err := s.sessions.GetOrCreate(ctx, env.SessionID, env.Message.toMessage(), env.history(), env.metadata())
	if err != nil {
		s.logger.Error("claim session", "session_id", env.SessionID, "error", err)
		s.metrics.RecordTurn(ctx, "error", time.Since(start))
		return Reply{Status: StatusSuccess, Reply: processor.ErrorReply}, nil
	}

	// A turn is never abandoned halfway, even if the caller goes away.
	turnCtx := context.WithoutCancel(ctx)

	out, err := s.runTurn(turnCtx, h.State)
	if err != nil {
		s.sessions.Release(h)
		s.logger.Error("turn failed", "session_id", env.SessionID, "error", err)
		s.metrics.RecordTurn(ctx, "error", time.Since(start))
		return Reply{Status: StatusSuccess, Reply: processor.ErrorReply}, nil
	}

	reply := out.Reply
	if reply == "" {
		reply = processor.DefaultReply
	}
	turn := h.State.TurnCount

	if err := s.sessions.Commit(turnCtx, h); err != nil {
		s.logger.Error("commit session", "session_id", env.SessionID, "error", err)
		s.metrics.RecordTurn(ctx, "commit_failed", time.Since(start))
		return Reply{Status: StatusSuccess, Reply: reply}, nil
	}

	s.metrics.RecordTurn(ctx, string(out.Final), time.Since(start))
	s.logger.Info("turn complete",
		"session_id", env.SessionID,
		"turn", turn,
		"final", out.Final,
		"fallbacks", len(out.Fallbacks),
		"reported", out.Reported,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return Reply{Status: StatusSuccess, Reply: reply}, nil
}

func (s *Service) runTurn(ctx context.Context, st *conversation.State) (out processor.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in turn: %v", r)
			s.logger.Error("turn panicked", "session_id", st.SessionID, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	return s.engine.Run(ctx, st), nil
}

// Session returns the stored state for inspection.
func (s *Service) Session(ctx context.Context, sessionID string) (*conversation.State, error) {
	return s.sessions.Get(ctx, sessionID)
}

// ActiveSessions is the number of stored sessions.
func (s *Service) ActiveSessions(ctx context.Context) (int, error) {
	return s.sessions.Count(ctx)
}
