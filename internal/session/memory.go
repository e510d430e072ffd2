package session

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ZuzannaKurillova/trAIvel/internal/explorer"
	"github.com/ZuzannaKurillova/trAIvel/internal/recommend"
)

// MemoryStore keeps session state in process. Sessions untouched for the
// TTL expire and read back as idle.
type MemoryStore struct {
	mu    sync.Mutex
	items *gocache.Cache
}

// NewMemoryStore constructs a MemoryStore with the given idle TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: gocache.New(ttl, 2*ttl)}
}

// Begin starts a search for session.
func (m *MemoryStore) Begin(_ context.Context, session, destination string) (explorer.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.get(session).Begin(destination)
	m.items.SetDefault(session, next)
	return next, nil
}

// Settle applies res if seq is still the session's latest search.
func (m *MemoryStore) Settle(_ context.Context, session string, seq uint64, res recommend.Result) (explorer.State, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next, applied := m.get(session).Settle(seq, res)
	if applied {
		m.items.SetDefault(session, next)
	}
	return next, applied, nil
}

// Load returns the session's state.
func (m *MemoryStore) Load(_ context.Context, session string) (explorer.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.get(session), nil
}

// Ping always succeeds.
func (m *MemoryStore) Ping(_ context.Context) error {
	return nil
}

func (m *MemoryStore) get(session string) explorer.State {
	if v, ok := m.items.Get(session); ok {
		return v.(explorer.State)
	}
	return explorer.State{}
}
