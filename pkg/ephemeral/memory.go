package ephemeral

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	data    string
	expires time.Time
}

// MemoryStore is the default single-process Store backed by a mutex'd
// map. A background sweep drops entries whose TTL (measured from the
// last read) has passed.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryStore creates a memory store whose blobs live for ttl after
// their last read.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Put stores data under a fresh token.
func (s *MemoryStore) Put(data string) (string, error) {
	token := uuid.NewString()
	s.mu.Lock()
	s.entries[token] = memoryEntry{data: data, expires: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return token, nil
}

// Get returns the blob for token and refreshes its lifetime.
func (s *MemoryStore) Get(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[token]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expires) {
		delete(s.entries, token)
		return "", false
	}
	entry.expires = time.Now().Add(s.ttl)
	s.entries[token] = entry
	return entry.data, true
}

// Close stops the background sweep.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) sweep() {
	interval := s.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for token, entry := range s.entries {
				if now.After(entry.expires) {
					delete(s.entries, token)
				}
			}
			s.mu.Unlock()
		}
	}
}
