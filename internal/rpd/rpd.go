// Package rpd classifies monthly disbursement plans (Rencana Penarikan Dana)
// against the revised total of their budget item.
package rpd

import (
	"fmt"
	"time"

	"anggaran/internal/core"
)

// Reconcile derives jumlah_rpd, selisih and status for a twelve-month plan.
func Reconcile(itemID string, months [12]int64, jumlahMenjadi int64) (core.RPDItem, error) {
	for i, v := range months {
		if v < 0 {
			return core.RPDItem{}, fmt.Errorf("%w: %s", core.ErrNegativeNumber, core.MonthNames[i])
		}
	}

	var sum int64
	for _, v := range months {
		sum += v
	}
	r := core.RPDItem{
		ItemID:        itemID,
		Months:        months,
		JumlahMenjadi: jumlahMenjadi,
		JumlahRPD:     core.Round1000Int(sum),
	}
	r.Selisih = core.Round1000Int(jumlahMenjadi - r.JumlahRPD)
	r.Status = classify(months, r.JumlahRPD, jumlahMenjadi)
	return r, nil
}

func classify(months [12]int64, jumlahRPD, jumlahMenjadi int64) core.RPDStatus {
	if jumlahRPD == jumlahMenjadi {
		return core.RPDOk
	}
	zero, filled := 0, 0
	for _, v := range months {
		if v == 0 {
			zero++
		} else {
			filled++
		}
	}
	switch {
	case jumlahMenjadi == 0 || zero == len(months):
		return core.RPDBelumIsi
	case filled == len(months):
		return core.RPDSisa
	default:
		return core.RPDBelumLengkap
	}
}

// SetMonth replaces one month and re-runs the reconciliation.
func SetMonth(r core.RPDItem, m time.Month, value int64) (core.RPDItem, error) {
	return SetMonths(r, map[time.Month]int64{m: value})
}

// SetMonths replaces several months at once. Nothing is changed when any
// value is rejected.
func SetMonths(r core.RPDItem, values map[time.Month]int64) (core.RPDItem, error) {
	months := r.Months
	for m, v := range values {
		if m < time.January || m > time.December {
			return r, fmt.Errorf("%w: month %d out of range", core.ErrValidation, m)
		}
		months[m-1] = v
	}
	out, err := Reconcile(r.ItemID, months, r.JumlahMenjadi)
	if err != nil {
		return r, err
	}
	return out, nil
}

// Sync re-derives the plan after the item's revised total changed.
func Sync(r core.RPDItem, jumlahMenjadi int64) core.RPDItem {
	// Months were validated when the plan was built.
	out, err := Reconcile(r.ItemID, r.Months, jumlahMenjadi)
	if err != nil {
		return r
	}
	return out
}

// ProgressReport describes how far a plan has been filled in.
type ProgressReport struct {
	FilledMonths int     `json:"filled_months"`
	Percent      float64 `json:"percent"`
}

// Progress counts the non-zero months and the share of jumlah_menjadi
// covered by the plan. A zero target reports 0%.
func Progress(r core.RPDItem) ProgressReport {
	var p ProgressReport
	for _, v := range r.Months {
		if v > 0 {
			p.FilledMonths++
		}
	}
	if r.JumlahMenjadi > 0 {
		p.Percent = float64(r.JumlahRPD) * 100 / float64(r.JumlahMenjadi)
	}
	return p
}
