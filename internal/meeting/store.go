// Package meeting persists meeting metadata in a document store.
// The signaling core never touches this directly; it is a lookup-by-id
// boundary used by the HTTP surface.
package meeting

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no meeting exists for the given id.
var ErrNotFound = errors.New("meeting not found")

// Meeting is one stored meeting record.
type Meeting struct {
	ID        string    `bson:"_id" json:"id"`
	Title     string    `bson:"title" json:"title"`
	Host      string    `bson:"host" json:"host"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Store provides access to meeting records.
type Store interface {
	// Get returns the meeting with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Meeting, error)

	// Create stores a new meeting. An empty ID is filled in.
	Create(ctx context.Context, m *Meeting) error
}

// MemoryStore keeps meetings in process memory. Used when no Mongo URI is
// configured, and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	meetings map[string]Meeting
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{meetings: make(map[string]Meeting)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meetings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (s *MemoryStore) Create(_ context.Context, m *Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.meetings[m.ID] = *m
	return nil
}
