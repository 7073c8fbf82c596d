package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"anggaran/internal/amqp"
	"anggaran/internal/cache"
	"anggaran/internal/core"
	"anggaran/internal/export"
	"anggaran/internal/importer"
	"anggaran/internal/storage"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []amqp.ItemEvent
	err    error
}

func (f *fakePublisher) PublishItemEvent(_ context.Context, ev *amqp.ItemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *ev)
	return f.err
}

func (f *fakePublisher) actions() []amqp.Action {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]amqp.Action, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Action
	}
	return out
}

func str(s string) *string { return &s }

func dec(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func newTestService(t *testing.T) (*BudgetService, *fakePublisher) {
	t.Helper()
	pub := &fakePublisher{}
	n := 0
	svc := NewBudgetService(storage.NewMemoryRepository(),
		WithEvents(pub),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("item-%d", n)
		}),
	)
	return svc, pub
}

func adminFields(uraian, akun string, semula, menjadi int64) core.ItemFields {
	return core.ItemFields{
		Uraian:             str(uraian),
		ProgramPembebanan:  str("054.01.WA"),
		Kegiatan:           str("4216"),
		Akun:               str(akun),
		VolumeSemula:       dec(1),
		SatuanSemula:       str("paket"),
		HargaSatuanSemula:  dec(semula),
		VolumeMenjadi:      dec(1),
		SatuanMenjadi:      str("paket"),
		HargaSatuanMenjadi: dec(menjadi),
	}
}

func TestBudgetServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)

	created, err := svc.Create(ctx, core.RoleAdmin, adminFields("Jasa konsultasi", "522151", 1_000_000, 1_500_000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != "item-1" || created.Version != 1 || created.Status != core.StatusNew {
		t.Fatalf("unexpected created item: %+v", created)
	}
	if created.Selisih != 500_000 {
		t.Fatalf("selisih = %d, want 500000", created.Selisih)
	}

	approved, err := svc.Approve(ctx, created.ID, core.RoleAdmin)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !approved.IsApproved || approved.Status != core.StatusUnchanged || approved.JumlahSemula != 1_500_000 {
		t.Fatalf("unexpected approved item: %+v", approved)
	}
	if approved.Version != 2 {
		t.Fatalf("version = %d, want 2", approved.Version)
	}

	edited, err := svc.Edit(ctx, created.ID, core.RoleUser, core.ItemFields{HargaSatuanMenjadi: dec(2_000_000)})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.IsApproved || edited.Status != core.StatusChanged || edited.Selisih != 500_000 {
		t.Fatalf("unexpected edited item: %+v", edited)
	}

	rejected, err := svc.Reject(ctx, created.ID, core.RoleAdmin)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.JumlahMenjadi != 1_500_000 || rejected.Status != core.StatusUnchanged {
		t.Fatalf("unexpected rejected item: %+v", rejected)
	}

	deleted, err := svc.Delete(ctx, created.ID, core.RoleAdmin)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.Status != core.StatusDeleted {
		t.Fatalf("status = %s, want deleted", deleted.Status)
	}

	want := []amqp.Action{amqp.ActionCreated, amqp.ActionApproved, amqp.ActionUpdated, amqp.ActionRejected, amqp.ActionDeleted}
	got := pub.actions()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %s, want %s", i, got[i], want[i])
		}
	}
	if last := pub.events[len(pub.events)-1]; last.ID != created.ID || last.Version != 5 {
		t.Errorf("last event = %+v", last)
	}
}

func TestBudgetServiceErrors(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)

	item, err := svc.Create(ctx, core.RoleAdmin, adminFields("ATK", "521211", 100_000, 100_000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	before := len(pub.actions())

	tests := []struct {
		name string
		run  func() error
		want error
	}{
		{"user approve", func() error { _, err := svc.Approve(ctx, item.ID, core.RoleUser); return err }, core.ErrPermissionDenied},
		{"user edits semula", func() error {
			_, err := svc.Edit(ctx, item.ID, core.RoleUser, core.ItemFields{VolumeSemula: dec(2)})
			return err
		}, core.ErrPermissionDenied},
		{"missing item", func() error { _, err := svc.Approve(ctx, "nope", core.RoleAdmin); return err }, core.ErrNotFound},
		{"negative price", func() error {
			_, err := svc.Edit(ctx, item.ID, core.RoleAdmin, core.ItemFields{HargaSatuanMenjadi: dec(-1)})
			return err
		}, core.ErrValidation},
		{"empty description", func() error {
			_, err := svc.Create(ctx, core.RoleAdmin, adminFields(" ", "521211", 1, 1))
			return err
		}, core.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if after := len(pub.actions()); after != before {
		t.Fatalf("failed operations published %d events", after-before)
	}
	got, err := svc.Get(ctx, item.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Version != item.Version {
		t.Fatalf("failed operations changed the stored item: version %d", got.Version)
	}
}

func TestBudgetServicePublishFailureKeepsWrite(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)
	pub.err = amqp.ErrCircuitOpen

	item, err := svc.Create(ctx, core.RoleAdmin, adminFields("ATK", "521211", 1_000, 1_000))
	if err != nil {
		t.Fatalf("create should succeed when publishing fails: %v", err)
	}
	if _, err := svc.Get(ctx, item.ID); err != nil {
		t.Fatalf("item not stored: %v", err)
	}
}

func TestBudgetServiceSummaryCache(t *testing.T) {
	ctx := context.Background()
	lru := cache.NewLRUCache[SummaryReport](16, time.Minute)
	svc := NewBudgetService(storage.NewMemoryRepository(), WithSummaryCache(lru))

	if _, err := svc.Create(ctx, core.RoleAdmin, adminFields("ATK", "521211", 100_000, 150_000)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, core.RoleAdmin, adminFields("Modal", "532111", 1_000_000, 900_000)); err != nil {
		t.Fatalf("create: %v", err)
	}

	sel := core.NewFilterSelection()
	rep, err := svc.Summary(ctx, core.DimAkunGroup, sel)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(rep.Records) != 2 || rep.Records[0].Key != "52" || rep.Records[1].Key != "53" {
		t.Fatalf("unexpected records: %+v", rep.Records)
	}
	if rep.Totals.TotalSelisih != -50_000 {
		t.Fatalf("total selisih = %d, want -50000", rep.Totals.TotalSelisih)
	}

	if _, err := svc.Summary(ctx, core.DimAkunGroup, sel); err != nil {
		t.Fatalf("summary: %v", err)
	}
	if st := lru.Stats(); st.Hits != 1 {
		t.Fatalf("second summary should hit the cache: %+v", st)
	}

	if _, err := svc.Create(ctx, core.RoleAdmin, adminFields("Honor", "521211", 0, 50_000)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if lru.Size() != 0 {
		t.Fatalf("mutation should purge the cache, size %d", lru.Size())
	}
	rep, err = svc.Summary(ctx, core.DimAkunGroup, sel)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if rep.Records[0].TotalItems != 2 {
		t.Fatalf("stale summary after mutation: %+v", rep.Records[0])
	}

	if _, err := svc.Summary(ctx, core.Dimension("bogus"), sel); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("unknown dimension: err = %v", err)
	}
}

func TestBudgetServiceRPD(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)

	item, err := svc.Create(ctx, core.RoleAdmin, adminFields("Perjalanan", "524111", 1_200_000, 1_200_000))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	plan, err := svc.GetRPD(ctx, item.ID)
	if err != nil {
		t.Fatalf("get rpd: %v", err)
	}
	if plan.Status != core.RPDBelumIsi || plan.JumlahMenjadi != 1_200_000 {
		t.Fatalf("unexpected empty plan: %+v", plan)
	}

	months := map[time.Month]int64{}
	for m := time.January; m <= time.December; m++ {
		months[m] = 100_000
	}
	plan, err = svc.UpdateRPD(ctx, item.ID, months)
	if err != nil {
		t.Fatalf("update rpd: %v", err)
	}
	if plan.Status != core.RPDOk || plan.JumlahRPD != 1_200_000 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	if got := pub.actions(); got[len(got)-1] != amqp.ActionRPD {
		t.Fatalf("last event = %s, want %s", got[len(got)-1], amqp.ActionRPD)
	}

	if _, err := svc.Edit(ctx, item.ID, core.RoleAdmin, core.ItemFields{HargaSatuanMenjadi: dec(1_500_000)}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	plan, err = svc.GetRPD(ctx, item.ID)
	if err != nil {
		t.Fatalf("get rpd: %v", err)
	}
	if plan.JumlahMenjadi != 1_500_000 || plan.Selisih != 300_000 || plan.Status != core.RPDSisa {
		t.Fatalf("plan not synced with item: %+v", plan)
	}

	if _, err := svc.UpdateRPD(ctx, item.ID, map[time.Month]int64{time.March: -1}); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("negative month: err = %v", err)
	}
	if _, err := svc.UpdateRPD(ctx, "missing", months); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing item: err = %v", err)
	}
}

func TestBudgetServiceImport(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t)

	grid := importer.Grid{
		{"Uraian", "Volume Semula", "Satuan Semula", "Harga Satuan Semula", "Volume Menjadi", "Satuan Menjadi", "Harga Satuan Menjadi"},
		{"Jasa konsultasi", 1, "Paket", 1000000, 1, "Paket", 1500000},
		{"", 1, "Paket", 1, 1, "Paket", 1},
		{"Negatif", -1, "Paket", 1, 1, "Paket", 1},
		{"Sewa", 2, nil, "abc", 2, "", 250000},
	}

	if _, err := svc.Import(ctx, core.RoleUser, grid, core.NewFilterSelection()); !errors.Is(err, core.ErrPermissionDenied) {
		t.Fatalf("user import: err = %v", err)
	}

	scope, err := core.NewFilterSelection().Set(core.DimKegiatan, "4216")
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	rep, err := svc.Import(ctx, core.RoleAdmin, grid, scope)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(rep.Imported) != 2 || rep.Empty != 1 || len(rep.Skipped) != 1 || len(rep.Warnings) != 1 {
		t.Fatalf("unexpected report: imported=%d empty=%d skipped=%d warnings=%d",
			len(rep.Imported), rep.Empty, len(rep.Skipped), len(rep.Warnings))
	}
	if !errors.Is(rep.Skipped[0], core.ErrImportRow) || rep.Skipped[0].Row != 4 {
		t.Fatalf("unexpected skipped row: %v", rep.Skipped[0])
	}

	first := rep.Imported[0]
	if first.Selisih != 500_000 || first.Status != core.StatusNew || first.Kegiatan != "4216" {
		t.Fatalf("unexpected first item: %+v", first.BudgetItem)
	}
	if second := rep.Imported[1]; second.SatuanMenjadi != importer.DefaultFallbackUnit || second.JumlahMenjadi != 500_000 {
		t.Fatalf("unexpected second item: %+v", second.BudgetItem)
	}

	if got := pub.actions(); len(got) != 1 || got[0] != amqp.ActionImported {
		t.Fatalf("events = %v, want a single imported event", got)
	}

	if _, err := svc.Import(ctx, core.RoleAdmin, importer.Grid{{"foo", "bar"}}, scope); !errors.Is(err, core.ErrImportFormat) {
		t.Fatalf("bad header: err = %v", err)
	}
}

func TestBudgetServiceListAndExport(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	a, _ := svc.Create(ctx, core.RoleAdmin, adminFields("ATK", "521211", 100_000, 100_000))
	f := adminFields("Lain", "521211", 10_000, 10_000)
	f.Kegiatan = str("9999")
	if _, err := svc.Create(ctx, core.RoleAdmin, f); err != nil {
		t.Fatalf("create: %v", err)
	}

	sel, _ := core.NewFilterSelection().Set(core.DimKegiatan, "4216")
	list, err := svc.List(ctx, sel)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != a.ID {
		t.Fatalf("filtered list = %+v", list)
	}

	tables, err := svc.ExportTables(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if want := 2 + len(core.Dimensions()); len(tables) != want {
		t.Fatalf("tables = %d, want %d", len(tables), want)
	}
	if tables[0].Name != export.SheetItems || len(tables[0].Rows) != 2 {
		t.Fatalf("unexpected item table: %s with %d rows", tables[0].Name, len(tables[0].Rows))
	}
	if last := tables[len(tables)-1]; last.Name != export.SheetRPD {
		t.Fatalf("last table = %s, want %s", last.Name, export.SheetRPD)
	}
}
