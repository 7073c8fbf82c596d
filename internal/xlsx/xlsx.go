// Package xlsx converts between .xlsx workbooks and the plain grids and
// tables the rest of the system works with.
package xlsx

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"anggaran/internal/export"
	"anggaran/internal/importer"
)

// ContentType is the MIME type of workbooks produced by Encode.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Decode reads one sheet of a workbook as a grid of strings. An empty sheet
// name selects the first sheet.
func Decode(r io.Reader, sheet string) (importer.Grid, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	if sheet == "" {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	grid := make(importer.Grid, len(rows))
	for i, row := range rows {
		cells := make([]any, len(row))
		for j, v := range row {
			cells[j] = v
		}
		grid[i] = cells
	}
	return grid, nil
}

// Sheets lists the sheet names of a workbook.
func Sheets(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// Encode writes one sheet per table with a bold header row.
func Encode(w io.Writer, tables ...export.Table) error {
	if len(tables) == 0 {
		return errors.New("nothing to encode")
	}
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	first := f.GetSheetName(0)
	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName(first, t.Name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return fmt.Errorf("create sheet %q: %w", t.Name, err)
		}
		if err := writeTable(f, t, bold); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, t export.Table, headerStyle int) error {
	for i, row := range t.Grid() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(t.Name, cell, &row); err != nil {
			return fmt.Errorf("sheet %q row %d: %w", t.Name, i+1, err)
		}
	}
	if len(t.Header) > 0 {
		if err := f.SetRowStyle(t.Name, 1, 1, headerStyle); err != nil {
			return fmt.Errorf("sheet %q header style: %w", t.Name, err)
		}
	}
	return nil
}
