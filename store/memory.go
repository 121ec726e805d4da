package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/krishnaadithya/movie-gen/models"
)

// MemorySessions holds sessions in process memory. It is the default backend
// and the one tests use. Entries are evicted by the janitor once idle past
// the configured TTL.
type MemorySessions struct {
	mu       sync.Mutex
	sessions map[string]*memoryEntry
}

type memoryEntry struct {
	session   *models.Session
	lastTouch time.Time
}

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]*memoryEntry)}
}

func (m *MemorySessions) Create(ctx context.Context, s *models.Session) error {
	return m.Save(ctx, s)
}

func (m *MemorySessions) Get(ctx context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	entry.lastTouch = time.Now()
	return cloneSession(entry.session)
}

func (m *MemorySessions) Save(ctx context.Context, s *models.Session) error {
	cp, err := cloneSession(s)
	if err != nil {
		return err
	}
	cp.UpdatedAt = time.Now()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = &memoryEntry{session: cp, lastTouch: time.Now()}
	return nil
}

func (m *MemorySessions) Update(ctx context.Context, id string, fn func(*models.Session) error) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}

	cp, err := cloneSession(entry.session)
	if err != nil {
		return nil, err
	}
	if err := fn(cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = time.Now()
	entry.session = cp
	entry.lastTouch = time.Now()

	return cloneSession(cp)
}

// EvictExpired drops sessions idle longer than ttl and returns the evicted
// ids so the caller can clear statuses and output directories.
func (m *MemorySessions) EvictExpired(ttl time.Duration) []string {
	cutoff := time.Now().Add(-ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	var evicted []string
	for id, entry := range m.sessions {
		if entry.lastTouch.Before(cutoff) {
			delete(m.sessions, id)
			evicted = append(evicted, id)
		}
	}
	return evicted
}

// MemoryStatuses is the in-process status register.
type MemoryStatuses struct {
	mu       sync.Mutex
	statuses map[string]models.GenerationStatus
}

func NewMemoryStatuses() *MemoryStatuses {
	return &MemoryStatuses{statuses: make(map[string]models.GenerationStatus)}
}

func (m *MemoryStatuses) Set(ctx context.Context, id string, st models.GenerationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[id] = st
	return nil
}

func (m *MemoryStatuses) Get(ctx context.Context, id string) (models.GenerationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.statuses[id]
	if !ok {
		return models.NotStarted(), nil
	}
	return st, nil
}

// Delete clears the status for evicted sessions.
func (m *MemoryStatuses) Delete(ctx context.Context, ids ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.statuses, id)
	}
}

// cloneSession deep-copies via JSON so callers never share mutable state with
// the map.
func cloneSession(s *models.Session) (*models.Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("clone session %s: %w", s.ID, err)
	}
	var cp models.Session
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("clone session %s: %w", s.ID, err)
	}
	return &cp, nil
}
