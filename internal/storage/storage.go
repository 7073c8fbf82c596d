// Package storage persists budget items and disbursement plans.
package storage

import (
	"context"

	"anggaran/internal/core"
)

// StoredItem is a budget item together with its storage version. The
// version grows by one on every save.
type StoredItem struct {
	core.BudgetItem
	Version int64 `json:"version"`
}

type ItemStore interface {
	ListItems(ctx context.Context) ([]StoredItem, error)
	GetItem(ctx context.Context, id string) (StoredItem, error)
	// SaveItem inserts or replaces the item and returns the new version.
	SaveItem(ctx context.Context, item core.BudgetItem) (int64, error)
}

type RPDStore interface {
	ListRPD(ctx context.Context) ([]core.RPDItem, error)
	GetRPD(ctx context.Context, itemID string) (core.RPDItem, error)
	SaveRPD(ctx context.Context, r core.RPDItem) error
}

// Repository is what the service layer needs from a backend.
type Repository interface {
	ItemStore
	RPDStore
	Ping(ctx context.Context) error
	Close() error
}

// Items strips the versions off a listing.
func Items(stored []StoredItem) []core.BudgetItem {
	out := make([]core.BudgetItem, len(stored))
	for i, s := range stored {
		out[i] = s.BudgetItem
	}
	return out
}
