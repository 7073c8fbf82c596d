package export

import (
	"testing"

	"github.com/shopspring/decimal"

	"anggaran/internal/core"
	"anggaran/internal/importer"
)

func TestItemsTableImportsBack(t *testing.T) {
	it := core.BudgetItem{
		ID:                 "x1",
		Uraian:             "Honor panitia",
		Akun:               "521213",
		VolumeSemula:       decimal.NewFromInt(4),
		SatuanSemula:       "OB",
		HargaSatuanSemula:  decimal.NewFromInt(300_000),
		VolumeMenjadi:      decimal.NewFromInt(5),
		SatuanMenjadi:      "OB",
		HargaSatuanMenjadi: decimal.NewFromInt(300_000),
		Status:             core.StatusChanged,
	}
	it.Recompute()

	table := Items([]core.BudgetItem{it})
	if len(table.Rows) != 1 || len(table.Rows[0]) != len(table.Header) {
		t.Fatalf("row width %d does not match header %d", len(table.Rows[0]), len(table.Header))
	}

	res, err := importer.Normalize(table.Grid(), importer.Options{})
	if err != nil {
		t.Fatalf("re-import: %v", err)
	}
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(res.Rows))
	}
	row := res.Rows[0]
	if *row.Uraian != "Honor panitia" || *row.Akun != "521213" || !row.VolumeMenjadi.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected re-imported row: uraian=%s akun=%s vol=%s", *row.Uraian, *row.Akun, row.VolumeMenjadi)
	}
}

func TestSummaryTotalRow(t *testing.T) {
	recs := []core.SummaryRecord{
		{Key: "51", Name: "Belanja Pegawai", TotalSemula: 100, TotalMenjadi: 150, TotalSelisih: 50, TotalItems: 1, ChangedItems: 1},
		{Key: "52", Name: "Belanja Barang dan Jasa", TotalSemula: 200, TotalMenjadi: 180, TotalSelisih: -20, TotalItems: 2, NewItems: 1},
	}
	table := Summary(core.DimAkunGroup, recs)
	if table.Name != "Ringkasan akunGroup" {
		t.Fatalf("unexpected name %q", table.Name)
	}
	last := table.Rows[len(table.Rows)-1]
	if last[0] != "TOTAL" || last[2] != int64(300) || last[4] != int64(30) || last[7] != int64(3) {
		t.Fatalf("unexpected total row: %v", last)
	}
}

func TestRPDTable(t *testing.T) {
	table := RPD([]core.RPDItem{{ItemID: "x1", Months: [12]int64{5: 1000}, JumlahRPD: 1000, JumlahMenjadi: 1000, Status: core.RPDOk}})
	if len(table.Header) != 17 || table.Header[1] != "Januari" || table.Header[12] != "Desember" {
		t.Fatalf("unexpected header: %v", table.Header)
	}
	if table.Rows[0][6] != int64(1000) || table.Rows[0][16] != "ok" {
		t.Fatalf("unexpected row: %v", table.Rows[0])
	}
}
