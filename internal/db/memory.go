package db

import (
	"context"
	"sync"

	"evidence-registry/internal/core"
)

// MemoryDB is a simple in-memory implementation of core.Database.
type MemoryDB struct {
	mu    sync.RWMutex
	docs  map[string]core.Anchored
	order []string
}

func NewMemoryDB() *MemoryDB {
	return &MemoryDB{docs: make(map[string]core.Anchored)}
}

func (m *MemoryDB) Save(_ context.Context, doc *core.Anchored) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; !ok {
		m.order = append(m.order, doc.ID)
	}
	m.docs[doc.ID] = *doc
	return nil
}

// Find returns the earliest anchored document matching ref.
func (m *MemoryDB) Find(_ context.Context, ref string) (*core.Anchored, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		doc := m.docs[id]
		if doc.FileHash == ref || doc.ContentID == ref || doc.Fingerprint == ref || doc.TxID == ref {
			return &doc, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *MemoryDB) List(_ context.Context) ([]core.Anchored, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Anchored, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.docs[id])
	}
	return out, nil
}
