// Package export lays items, summaries and disbursement plans out as plain
// tables for spreadsheet collaborators.
package export

import (
	"strings"

	"anggaran/internal/core"
)

// Table is one sheet worth of data. Cells hold strings, int64 amounts or
// float64 quantities.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

const (
	SheetItems = "Rincian"
	SheetRPD   = "RPD"
)

var itemHeader = []string{
	"ID", "Uraian", "Program Pembebanan", "Kegiatan", "Rincian Output", "Komponen Output", "Sub Komponen", "Akun",
	"Volume Semula", "Satuan Semula", "Harga Satuan Semula", "Jumlah Semula",
	"Volume Menjadi", "Satuan Menjadi", "Harga Satuan Menjadi", "Jumlah Menjadi",
	"Selisih", "Status", "Disetujui", "Sisa Anggaran", "Blokir",
}

// Items renders every item, deleted ones included, so the table doubles
// as an audit trail. The header matches the import column names and can be
// imported back.
func Items(items []core.BudgetItem) Table {
	t := Table{Name: SheetItems, Header: itemHeader}
	for _, it := range items {
		approved := "tidak"
		if it.IsApproved {
			approved = "ya"
		}
		t.Rows = append(t.Rows, []any{
			it.ID, it.Uraian, it.ProgramPembebanan, it.Kegiatan, it.RincianOutput, it.KomponenOutput, it.SubKomponen, it.Akun,
			it.VolumeSemula.InexactFloat64(), it.SatuanSemula, it.HargaSatuanSemula.InexactFloat64(), it.JumlahSemula,
			it.VolumeMenjadi.InexactFloat64(), it.SatuanMenjadi, it.HargaSatuanMenjadi.InexactFloat64(), it.JumlahMenjadi,
			it.Selisih, string(it.Status), approved, it.SisaAnggaran, it.Blokir,
		})
	}
	return t
}

// Summary renders the records of one dimension followed by a total row.
func Summary(dim core.Dimension, records []core.SummaryRecord) Table {
	t := Table{
		Name:   SummarySheetName(dim),
		Header: []string{"Kode", "Nama", "Total Semula", "Total Menjadi", "Total Selisih", "Item Baru", "Item Berubah", "Total Item"},
	}
	var semula, menjadi, selisih int64
	var baru, berubah, total int
	for _, r := range records {
		t.Rows = append(t.Rows, []any{
			r.Key, r.Name, r.TotalSemula, r.TotalMenjadi, r.TotalSelisih,
			int64(r.NewItems), int64(r.ChangedItems), int64(r.TotalItems),
		})
		semula += r.TotalSemula
		menjadi += r.TotalMenjadi
		selisih += r.TotalSelisih
		baru += r.NewItems
		berubah += r.ChangedItems
		total += r.TotalItems
	}
	t.Rows = append(t.Rows, []any{"TOTAL", "", semula, menjadi, selisih, int64(baru), int64(berubah), int64(total)})
	return t
}

// SummarySheetName is the sheet title for a dimension, e.g. "Ringkasan akunGroup".
func SummarySheetName(dim core.Dimension) string {
	return "Ringkasan " + string(dim)
}

// RPD renders disbursement plans with one column per month.
func RPD(plans []core.RPDItem) Table {
	header := []string{"ID Item"}
	for _, m := range core.MonthNames {
		header = append(header, strings.ToUpper(m[:1])+m[1:])
	}
	header = append(header, "Jumlah RPD", "Jumlah Menjadi", "Selisih", "Status")

	t := Table{Name: SheetRPD, Header: header}
	for _, p := range plans {
		row := []any{p.ItemID}
		for _, v := range p.Months {
			row = append(row, v)
		}
		row = append(row, p.JumlahRPD, p.JumlahMenjadi, p.Selisih, string(p.Status))
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Grid returns the table as header plus rows, the shape spreadsheet APIs take.
func (t Table) Grid() [][]any {
	out := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	out = append(out, header)
	return append(out, t.Rows...)
}
