package gallery

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is a process-local Store.
type MemoryStore struct {
	capacity int
	now      func() time.Time

	mu      sync.RWMutex
	entries []Entry // newest first
}

// NewMemoryStore creates an empty store. A capacity of zero or less uses DefaultCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{capacity: capacity, now: time.Now}
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, len(s.entries))
	for i, e := range s.entries {
		out[i] = cloneEntry(e)
	}
	return out, nil
}

// Insert implements Store.
func (s *MemoryStore) Insert(ctx context.Context, e Entry) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	prepared, err := Prepare(e)
	if err != nil {
		return Entry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) >= s.capacity {
		return Entry{}, ErrFull
	}
	key := prepared.Profile.Key()
	for _, existing := range s.entries {
		if existing.Profile.Key() == key {
			return Entry{}, ErrDuplicate
		}
	}
	prepared.ID = uuid.NewString()
	prepared.CreatedAt = s.now().UTC()
	s.entries = append([]Entry{prepared}, s.entries...)
	return cloneEntry(prepared), nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func cloneEntry(e Entry) Entry {
	e.Profile = e.Profile.Clone()
	e.Image = append([]byte(nil), e.Image...)
	return e
}
