package backend

import (
	"context"

	gsheet "anggaran/internal/sheets/google"
	"anggaran/internal/storage"
)

// CleanupFunc releases the resources of a backend.
type CleanupFunc func() error

// Result contains the repository and its cleanup function.
type Result struct {
	Repository storage.Repository
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	// CreateBackend opens the item and plan repository.
	CreateBackend(ctx context.Context, config Config) (*Result, error)
	// CreateSheets opens the spreadsheet mirror. It fails with
	// ErrSheetsDisabled when no spreadsheet is configured.
	CreateSheets(ctx context.Context, config Config) (*gsheet.Client, error)
}

// Config holds configuration for backend creation.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of backend.
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
