package rpd

import (
	"errors"
	"testing"
	"time"

	"anggaran/internal/core"
)

func filled(v int64) [12]int64 {
	var m [12]int64
	for i := range m {
		m[i] = v
	}
	return m
}

func TestReconcileStatus(t *testing.T) {
	const target = 1_200_000
	tests := []struct {
		name    string
		months  [12]int64
		target  int64
		status  core.RPDStatus
		selisih int64
	}{
		{"evenly spread", filled(100_000), target, core.RPDOk, 0},
		{"single month only", [12]int64{100_000}, target, core.RPDBelumLengkap, 1_100_000},
		{"all zero", [12]int64{}, target, core.RPDBelumIsi, 1_200_000},
		{"zero target", filled(10_000), 0, core.RPDBelumIsi, -120_000},
		{"all filled short", filled(50_000), target, core.RPDSisa, 600_000},
		{"all filled over", filled(200_000), target, core.RPDSisa, -1_200_000},
		{"lump sum", [12]int64{11: 1_200_000}, target, core.RPDOk, 0},
		{"zero plan zero target", [12]int64{}, 0, core.RPDOk, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Reconcile("item-1", tt.months, tt.target)
			if err != nil {
				t.Fatalf("Reconcile: %v", err)
			}
			if r.Status != tt.status {
				t.Errorf("status = %s, want %s", r.Status, tt.status)
			}
			if r.Selisih != tt.selisih {
				t.Errorf("selisih = %d, want %d", r.Selisih, tt.selisih)
			}
			if r.ItemID != "item-1" {
				t.Errorf("item id = %q", r.ItemID)
			}
		})
	}
}

func TestReconcileRoundsPlanTotal(t *testing.T) {
	r, err := Reconcile("x", [12]int64{1_499, 0, 0}, 1_000)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if r.JumlahRPD != 1_000 || r.Status != core.RPDOk {
		t.Fatalf("expected rounded total 1000 and ok, got %+v", r)
	}
}

func TestReconcileRejectsNegative(t *testing.T) {
	_, err := Reconcile("x", [12]int64{3: -1}, 1_000)
	if !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetMonth(t *testing.T) {
	r, _ := Reconcile("x", [12]int64{}, 1_200_000)
	r, err := SetMonth(r, time.January, 600_000)
	if err != nil {
		t.Fatalf("SetMonth: %v", err)
	}
	if r.Status != core.RPDBelumLengkap {
		t.Fatalf("expected belum_lengkap, got %s", r.Status)
	}
	r, err = SetMonths(r, map[time.Month]int64{time.June: 600_000})
	if err != nil {
		t.Fatalf("SetMonths: %v", err)
	}
	if r.Status != core.RPDOk || r.Month(time.June) != 600_000 {
		t.Fatalf("expected ok plan, got %+v", r)
	}

	before := r
	if _, err := SetMonth(r, time.March, -5); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if r != before {
		t.Fatalf("rejected edit must not change the plan")
	}
	if _, err := SetMonth(r, time.Month(13), 1); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("expected out of range error, got %v", err)
	}
}

func TestSyncAndProgress(t *testing.T) {
	r, _ := Reconcile("x", filled(100_000), 1_200_000)
	r = Sync(r, 1_500_000)
	if r.Status != core.RPDSisa || r.Selisih != 300_000 {
		t.Fatalf("unexpected synced plan: %+v", r)
	}
	p := Progress(r)
	if p.FilledMonths != 12 || p.Percent != 80 {
		t.Fatalf("unexpected progress: %+v", p)
	}
	if p := Progress(core.RPDItem{}); p.FilledMonths != 0 || p.Percent != 0 {
		t.Fatalf("unexpected empty progress: %+v", p)
	}
}
