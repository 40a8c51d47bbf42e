// Package session owns the lifecycle of ConversationState records and
// guarantees that at most one turn runs per session at any time.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
	"github.com/MikeSquared-Agency/decoy/internal/observe"
	"github.com/MikeSquared-Agency/decoy/internal/store"
)

var ErrHandleClosed = errors.New("session: handle already committed or released")

// Manager wraps a store with per-session exclusive access. Exclusivity is per
// process; horizontally scaled deployments must route a session to one replica.
type Manager struct {
	store   store.Store
	locks   *keyedLock
	metrics *observe.Metrics
	logger  *slog.Logger
	backend string
}

func NewManager(s store.Store, backend string, metrics *observe.Metrics, logger *slog.Logger) *Manager {
	return &Manager{
		store:   s,
		locks:   newKeyedLock(),
		metrics: metrics,
		logger:  logger,
		backend: backend,
	}
}

// Handle is exclusive, turn-scoped access to one session's state. State is
// valid until Commit or Release; do not keep it afterwards.
type Handle struct {
	State   *conversation.State
	Created bool

	release func()
}

// GetOrCreate blocks until the session is free, then loads it and records the
// inbound message. First contact builds a fresh state from the caller's
// history; repeat contact appends to the stored history.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID string, inbound conversation.Message, history []conversation.Message, metadata map[string]string) (*Handle, error) {
	release, err := m.locks.acquire(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("wait for session %s: %w", sessionID, err)
	}

	st, err := m.store.Load(ctx, sessionID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		st = conversation.New(sessionID, inbound, history, metadata)
		m.metrics.RecordSessionCreated(ctx, m.backend)
		m.logger.Info("session created", "session_id", sessionID, "turn", st.TurnCount)
		return &Handle{State: st, Created: true, release: release}, nil
	case err != nil:
		release()
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	st.Receive(inbound)
	m.logger.Debug("session resumed", "session_id", sessionID, "turn", st.TurnCount)
	return &Handle{State: st, release: release}, nil
}

// Commit persists the handle's state and releases the session.
func (m *Manager) Commit(ctx context.Context, h *Handle) error {
	if h == nil || h.release == nil {
		return ErrHandleClosed
	}
	defer m.Release(h)

	if err := m.store.Save(ctx, h.State); err != nil {
		return fmt.Errorf("save session %s: %w", h.State.SessionID, err)
	}
	return nil
}

// Release gives up the session without saving. Safe to call after Commit.
func (m *Manager) Release(h *Handle) {
	if h == nil || h.release == nil {
		return
	}
	h.release()
	h.release = nil
	h.State = nil
}

// Get returns a read-only copy of a session's state for inspection.
func (m *Manager) Get(ctx context.Context, sessionID string) (*conversation.State, error) {
	return m.store.Load(ctx, sessionID)
}

// Count returns the number of stored sessions.
func (m *Manager) Count(ctx context.Context) (int, error) {
	return m.store.Count(ctx)
}
