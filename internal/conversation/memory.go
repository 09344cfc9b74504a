package conversation

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	sess    *Session
	touched time.Time
}

type memoryStore struct {
	mu      sync.RWMutex
	entries map[int64]memoryEntry
	idleTTL time.Duration
	now     func() time.Time
}

// NewMemoryStore constructs an in-process Store. A positive idleTTL discards
// drafts abandoned for longer than the given duration; zero disables expiry.
func NewMemoryStore(idleTTL time.Duration) Store {
	return &memoryStore{
		entries: make(map[int64]memoryEntry),
		idleTTL: idleTTL,
		now:     time.Now,
	}
}

func (m *memoryStore) Get(_ context.Context, userID int64) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.entries[userID]
	m.mu.RUnlock()
	if !ok {
		return &Session{State: StateIdle}, nil
	}
	if m.idleTTL > 0 && m.now().Sub(entry.touched) > m.idleTTL {
		m.mu.Lock()
		delete(m.entries, userID)
		m.mu.Unlock()
		return &Session{State: StateIdle}, nil
	}
	return entry.sess, nil
}

func (m *memoryStore) Set(_ context.Context, userID int64, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = memoryEntry{sess: sess, touched: m.now()}
	return nil
}

func (m *memoryStore) Delete(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	return nil
}
