// Package importer turns a raw spreadsheet grid into budget item field sets.
//
// The grid has no assumed header position. The header row is located by
// matching cells against a table of accepted spellings, columns are mapped
// to fields, and every following row becomes a core.ItemFields ready for
// revision.Create. Bad rows are skipped and reported; a bad header aborts.
package importer

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"anggaran/internal/core"
)

const (
	// DefaultFallbackUnit replaces empty unit cells.
	DefaultFallbackUnit = "paket"

	headerScanRows = 10
	minHeaderMatch = 3
)

// Grid is a rectangular sheet of cell values: strings, numbers or nil.
// Rows may be ragged.
type Grid = [][]any

// Options tune row extraction.
type Options struct {
	FallbackUnit string
	// Scope supplies hierarchy values for columns the sheet does not carry.
	Scope core.FilterSelection
}

// RowWarning records a cell that could not be parsed and was replaced by 0.
type RowWarning struct {
	Row   int        `json:"row"`
	Field core.Field `json:"field"`
	Value string     `json:"value"`
}

// Result is the outcome of one import batch.
type Result struct {
	Rows []core.ItemFields
	// RowNumbers holds the 1-based sheet row of each entry in Rows.
	RowNumbers []int
	Skipped  []*core.ImportRowError
	Warnings []RowWarning
	// Empty counts data rows dropped for a blank description.
	Empty int
	// HeaderRow is the 0-based index of the header inside the grid.
	HeaderRow int
	Columns   map[core.Field]int
}

// Normalize detects the header, maps the columns and extracts all rows.
func Normalize(grid Grid, opts Options) (Result, error) {
	if opts.FallbackUnit == "" {
		opts.FallbackUnit = DefaultFallbackUnit
	}

	header, err := DetectHeader(grid)
	if err != nil {
		return Result{}, err
	}
	cols, err := MapColumns(grid[header])
	if err != nil {
		return Result{}, err
	}

	res := Result{HeaderRow: header, Columns: cols}
	for i := header + 1; i < len(grid); i++ {
		x := extractor{row: grid[i], rowNum: i + 1, cols: cols, opts: opts}
		fields, ok, err := x.extract()
		res.Warnings = append(res.Warnings, x.warnings...)
		switch {
		case err != nil:
			res.Skipped = append(res.Skipped, err)
		case !ok:
			res.Empty++
		default:
			res.Rows = append(res.Rows, fields)
			res.RowNumbers = append(res.RowNumbers, i+1)
		}
	}
	return res, nil
}

// DetectHeader returns the index of the row among the first ten with the
// most recognised header cells. Ties go to the earlier row.
func DetectHeader(grid Grid) (int, error) {
	best, bestCount := -1, 0
	for i := 0; i < len(grid) && i < headerScanRows; i++ {
		count := 0
		for _, c := range grid[i] {
			if matchesAny(normalize(cellString(c))) {
				count++
			}
		}
		if count >= minHeaderMatch && count > bestCount {
			best, bestCount = i, count
		}
	}
	if best < 0 {
		return 0, &core.ImportFormatError{Reason: "no header row found"}
	}
	return best, nil
}

type candidate struct {
	col   int
	cell  string
	field core.Field
	score score
}

// MapColumns assigns each field to at most one header column. Candidates
// are taken best first, so the result does not depend on column order.
// Header cells that normalize to the same text are the one exception: the
// leftmost of them wins and the others are ignored.
func MapColumns(header []any) (map[core.Field]int, error) {
	cells := make([]string, len(header))
	for i, c := range header {
		cells[i] = normalize(cellString(c))
	}

	var cands []candidate
	for col, cell := range cells {
		for f := range normalizedVariants {
			if s := matchField(cell, f); s.rank != rankNone {
				cands = append(cands, candidate{col, cell, f, s})
			}
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score.better(b.score)
		}
		if a.cell != b.cell {
			return a.cell < b.cell
		}
		if a.field != b.field {
			return a.field < b.field
		}
		return a.col < b.col
	})

	cols := map[core.Field]int{}
	used := map[int]bool{}
	for _, c := range cands {
		if _, ok := cols[c.field]; ok || used[c.col] {
			continue
		}
		cols[c.field] = c.col
		used[c.col] = true
	}

	for _, p := range tokenPairs {
		if _, ok := cols[p.field]; ok {
			continue
		}
		match := -1
		for col, cell := range cells {
			if used[col] || !strings.Contains(cell, p.a) || !strings.Contains(cell, p.b) {
				continue
			}
			if match < 0 || cell < cells[match] {
				match = col
			}
		}
		if match >= 0 {
			cols[p.field] = match
			used[match] = true
		}
	}

	var missing []core.Field
	for _, f := range required {
		if _, ok := cols[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return nil, &core.ImportFormatError{Reason: "missing required columns", Missing: missing}
	}
	return cols, nil
}

type extractor struct {
	row      []any
	rowNum   int
	cols     map[core.Field]int
	opts     Options
	warnings []RowWarning
}

func (x *extractor) cell(f core.Field) (any, bool) {
	col, ok := x.cols[f]
	if !ok || col >= len(x.row) {
		return nil, false
	}
	return x.row[col], true
}

func (x *extractor) text(f core.Field) string {
	v, _ := x.cell(f)
	return strings.TrimSpace(cellString(v))
}

// number parses a numeric cell. Blank cells are 0; unparseable cells are 0
// with a warning; negative values reject the row.
func (x *extractor) number(f core.Field) (decimal.Decimal, *core.ImportRowError) {
	v, _ := x.cell(f)
	var d decimal.Decimal
	switch n := v.(type) {
	case nil:
		return decimal.Zero, nil
	case float64:
		d = decimal.NewFromFloat(n)
	case int:
		d = decimal.NewFromInt(int64(n))
	case int64:
		d = decimal.NewFromInt(n)
	case decimal.Decimal:
		d = n
	default:
		s := strings.TrimSpace(cellString(v))
		if s == "" {
			return decimal.Zero, nil
		}
		parsed, err := core.ParseNumber(s)
		if err != nil {
			x.warnings = append(x.warnings, RowWarning{Row: x.rowNum, Field: f, Value: s})
			return decimal.Zero, nil
		}
		d = parsed
	}
	if d.IsNegative() {
		return decimal.Zero, &core.ImportRowError{Row: x.rowNum, Field: f, Err: core.ErrNegativeNumber}
	}
	return d, nil
}

func (x *extractor) unit(f core.Field) string {
	if s := x.text(f); s != "" {
		return s
	}
	return x.opts.FallbackUnit
}

func (x *extractor) hierarchy(f core.Field, level core.Dimension) *string {
	if s := x.text(f); s != "" {
		return &s
	}
	if v := x.opts.Scope.Value(level); v != core.All {
		return &v
	}
	return nil
}

func (x *extractor) extract() (core.ItemFields, bool, *core.ImportRowError) {
	uraian := x.text(core.FieldUraian)
	if uraian == "" {
		return core.ItemFields{}, false, nil
	}

	var nums [4]decimal.Decimal
	for i, f := range []core.Field{
		core.FieldVolumeSemula, core.FieldHargaSatuanSemula,
		core.FieldVolumeMenjadi, core.FieldHargaSatuanMenjadi,
	} {
		d, err := x.number(f)
		if err != nil {
			return core.ItemFields{}, false, err
		}
		nums[i] = d
	}

	out := core.ItemFields{
		Uraian:             &uraian,
		ProgramPembebanan:  x.hierarchy(core.FieldProgramPembebanan, core.DimProgramPembebanan),
		Kegiatan:           x.hierarchy(core.FieldKegiatan, core.DimKegiatan),
		RincianOutput:      x.hierarchy(core.FieldRincianOutput, core.DimRincianOutput),
		KomponenOutput:     x.hierarchy(core.FieldKomponenOutput, core.DimKomponenOutput),
		SubKomponen:        x.hierarchy(core.FieldSubKomponen, core.DimSubKomponen),
		Akun:               x.hierarchy(core.FieldAkun, core.DimAkun),
		VolumeSemula:       &nums[0],
		HargaSatuanSemula:  &nums[1],
		VolumeMenjadi:      &nums[2],
		HargaSatuanMenjadi: &nums[3],
	}
	satSemula, satMenjadi := x.unit(core.FieldSatuanSemula), x.unit(core.FieldSatuanMenjadi)
	out.SatuanSemula, out.SatuanMenjadi = &satSemula, &satMenjadi

	for _, f := range []core.Field{core.FieldSisaAnggaran, core.FieldBlokir} {
		if _, ok := x.cols[f]; !ok {
			continue
		}
		d, err := x.number(f)
		if err != nil {
			return core.ItemFields{}, false, err
		}
		n := d.Round(0).IntPart()
		if f == core.FieldSisaAnggaran {
			out.SisaAnggaran = &n
		} else {
			out.Blokir = &n
		}
	}
	return out, true, nil
}

// cellString renders a grid cell as text.
func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	case int:
		return strconv.Itoa(c)
	case int64:
		return strconv.FormatInt(c, 10)
	case decimal.Decimal:
		return c.String()
	case fmt.Stringer:
		return c.String()
	default:
		return fmt.Sprint(c)
	}
}
