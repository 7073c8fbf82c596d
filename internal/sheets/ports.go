// Package sheets defines the spreadsheet collaborators: where import grids
// come from and where exported tables are mirrored to.
package sheets

import (
	"context"
	"strings"

	"anggaran/internal/export"
	"anggaran/internal/importer"
)

// Ports for outbound adapters.
type (
	// GridReader reads a raw cell grid from a sheet range in A1 notation.
	// A bare sheet name reads the whole sheet.
	GridReader interface {
		ReadGrid(ctx context.Context, rangeA1 string) (importer.Grid, error)
	}

	// TableWriter replaces the content of one sheet per table, creating
	// missing sheets.
	TableWriter interface {
		WriteTables(ctx context.Context, tables ...export.Table) error
	}
)

// SheetOf returns the sheet part of an A1 range ("'Data 1'!A1:Z" -> "Data 1").
func SheetOf(rangeA1 string) string {
	name := rangeA1
	if i := strings.LastIndex(rangeA1, "!"); i >= 0 {
		name = rangeA1[:i]
	}
	if len(name) >= 2 && name[0] == '\'' && name[len(name)-1] == '\'' {
		name = strings.ReplaceAll(name[1:len(name)-1], "''", "'")
	}
	return name
}

// Quote renders a sheet name for use in an A1 range.
func Quote(sheet string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
}
