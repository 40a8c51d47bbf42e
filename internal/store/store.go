// Package store persists ConversationState records. Backends are
// interchangeable; none of them coordinates writers, which is the session
// manager's job.
package store

import (
	"context"
	"errors"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
)

var ErrNotFound = errors.New("store: session not found")

type Store interface {
	// Load returns a copy of the stored state or ErrNotFound.
	Load(ctx context.Context, sessionID string) (*conversation.State, error)
	// Save replaces the stored state for s.SessionID.
	Save(ctx context.Context, s *conversation.State) error
	// Count returns the number of live sessions.
	Count(ctx context.Context) (int, error)
}
