package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/MikeSquared-Agency/decoy/internal/conversation"
)

// Memory keeps sessions in process, evicting them after ttl of inactivity.
type Memory struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMemory builds an in-process store. ttl <= 0 disables expiry.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	cleanup := ttl * 2
	if ttl == gocache.NoExpiration {
		cleanup = 0
	}
	return &Memory{cache: gocache.New(ttl, cleanup), ttl: ttl}
}

func (m *Memory) Load(_ context.Context, sessionID string) (*conversation.State, error) {
	v, ok := m.cache.Get(sessionID)
	if !ok {
		return nil, ErrNotFound
	}
	return v.(*conversation.State).Clone(), nil
}

func (m *Memory) Save(_ context.Context, s *conversation.State) error {
	m.cache.Set(s.SessionID, s.Clone(), gocache.DefaultExpiration)
	return nil
}

func (m *Memory) Count(_ context.Context) (int, error) {
	return m.cache.ItemCount(), nil
}
