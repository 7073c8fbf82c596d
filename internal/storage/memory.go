package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"anggaran/internal/core"
)

// MemoryRepository keeps everything in process memory. Listing order is
// insertion order, like the SQLite rowid order.
type MemoryRepository struct {
	mu    sync.RWMutex
	order []string
	items map[string]StoredItem
	rpd   map[string]core.RPDItem
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items: map[string]StoredItem{},
		rpd:   map[string]core.RPDItem{},
	}
}

func (m *MemoryRepository) ListItems(_ context.Context) ([]StoredItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]StoredItem, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id])
	}
	return out, nil
}

func (m *MemoryRepository) GetItem(_ context.Context, id string) (StoredItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return StoredItem{}, fmt.Errorf("item %s: %w", id, core.ErrNotFound)
	}
	return it, nil
}

func (m *MemoryRepository) SaveItem(_ context.Context, item core.BudgetItem) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.items[item.ID]
	if !ok {
		m.order = append(m.order, item.ID)
	}
	stored := StoredItem{BudgetItem: item, Version: prev.Version + 1}
	m.items[item.ID] = stored
	return stored.Version, nil
}

func (m *MemoryRepository) ListRPD(_ context.Context) ([]core.RPDItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RPDItem, 0, len(m.rpd))
	for _, r := range m.rpd {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}

func (m *MemoryRepository) GetRPD(_ context.Context, itemID string) (core.RPDItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rpd[itemID]
	if !ok {
		return core.RPDItem{}, fmt.Errorf("rpd %s: %w", itemID, core.ErrNotFound)
	}
	return r, nil
}

func (m *MemoryRepository) SaveRPD(_ context.Context, r core.RPDItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rpd[r.ItemID] = r
	return nil
}

func (m *MemoryRepository) Ping(context.Context) error { return nil }

func (m *MemoryRepository) Close() error { return nil }
