package memory

import (
	"context"
	"fmt"
	"sync"

	"anggaran/internal/core"
	"anggaran/internal/export"
	"anggaran/internal/importer"
	"anggaran/internal/sheets"
)

// Store is an in-process spreadsheet: a set of named grids.
type Store struct {
	mu     sync.Mutex
	grids  map[string]importer.Grid
	writes int
}

var (
	_ sheets.GridReader  = (*Store)(nil)
	_ sheets.TableWriter = (*Store)(nil)
)

func New() *Store {
	return &Store{grids: map[string]importer.Grid{}}
}

// Put seeds a sheet.
func (s *Store) Put(sheet string, grid importer.Grid) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grids[sheet] = grid
}

func (s *Store) ReadGrid(_ context.Context, rangeA1 string) (importer.Grid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := sheets.SheetOf(rangeA1)
	g, ok := s.grids[name]
	if !ok {
		return nil, fmt.Errorf("sheet %q: %w", name, core.ErrNotFound)
	}
	out := make(importer.Grid, len(g))
	copy(out, g)
	return out, nil
}

func (s *Store) WriteTables(_ context.Context, tables ...export.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tables {
		s.grids[t.Name] = t.Grid()
	}
	s.writes++
	return nil
}

// Writes counts WriteTables calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Sheet returns a sheet's grid, or nil.
func (s *Store) Sheet(name string) importer.Grid {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grids[name]
}
