package reconcile

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
)

// SlotStore maps an output index of a parent panel to the id of the
// panel showing it. Once assigned, an id never changes for that
// (parent, index) pair.
type SlotStore interface {
	PanelID(ctx context.Context, parentID string, index int) (string, error)
	// Forget drops every slot of parentID.
	Forget(ctx context.Context, parentID string) error
}

// NewPanelID returns a fresh, sortable panel id.
func NewPanelID() string {
	return ulid.Make().String()
}

type slotKey struct {
	parent string
	index  int
}

// MemorySlotStore keeps slot ids for the life of the process.
type MemorySlotStore struct {
	mu    sync.Mutex
	slots map[slotKey]string
}

// NewMemorySlotStore returns an empty store.
func NewMemorySlotStore() *MemorySlotStore {
	return &MemorySlotStore{slots: make(map[slotKey]string)}
}

func (s *MemorySlotStore) PanelID(ctx context.Context, parentID string, index int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey{parent: parentID, index: index}
	if id, ok := s.slots[key]; ok {
		return id, nil
	}
	id := NewPanelID()
	s.slots[key] = id
	return id, nil
}

func (s *MemorySlotStore) Forget(ctx context.Context, parentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.slots {
		if key.parent == parentID {
			delete(s.slots, key)
		}
	}
	return nil
}
