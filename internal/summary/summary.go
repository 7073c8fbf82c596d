// Package summary rolls budget items up into per-dimension totals.
package summary

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"anggaran/internal/core"
)

// Totals is the grand total over a set of records. It is computed on
// demand and never stored as a record.
type Totals struct {
	TotalSemula  int64 `json:"total_semula"`
	TotalMenjadi int64 `json:"total_menjadi"`
	TotalSelisih int64 `json:"total_selisih"`
	NewItems     int   `json:"new_items"`
	ChangedItems int   `json:"changed_items"`
	TotalItems   int   `json:"total_items"`
}

// Filter returns the items inside the selection.
func Filter(items []core.BudgetItem, sel core.FilterSelection) []core.BudgetItem {
	out := make([]core.BudgetItem, 0, len(items))
	for _, it := range items {
		if sel.Matches(it) {
			out = append(out, it)
		}
	}
	return out
}

// Active drops deleted items. Callers use it to narrow the scope before
// summarizing when deleted lines should not count.
func Active(items []core.BudgetItem) []core.BudgetItem {
	out := make([]core.BudgetItem, 0, len(items))
	for _, it := range items {
		if it.Status != core.StatusDeleted {
			out = append(out, it)
		}
	}
	return out
}

// Summarize groups items by the dimension value and returns one record per
// distinct non-empty value, in first-seen order. Every given item counts,
// whatever its status.
//
// total_selisih is the sum of the per-item differences, not
// total_menjadi − total_semula.
func Summarize(items []core.BudgetItem, dim core.Dimension) []core.SummaryRecord {
	index := map[string]int{}
	var out []core.SummaryRecord
	for _, it := range items {
		key := dim.KeyOf(it)
		if key == "" {
			continue
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			rec := core.SummaryRecord{Dimension: dim, Key: key}
			if dim == core.DimAkunGroup || dim == core.DimAccountGroup {
				rec.Name = core.GroupName(key)
			}
			out = append(out, rec)
		}
		rec := &out[i]
		rec.TotalSemula += it.JumlahSemula
		rec.TotalMenjadi += it.JumlahMenjadi
		rec.TotalSelisih += it.Selisih
		switch it.Status {
		case core.StatusNew:
			rec.NewItems++
		case core.StatusChanged:
			rec.ChangedItems++
		}
		rec.TotalItems++
	}
	return out
}

// SummarizeAll computes the summaries of several dimensions concurrently.
// With no dimensions given every supported dimension is computed.
func SummarizeAll(ctx context.Context, items []core.BudgetItem, dims ...core.Dimension) (map[core.Dimension][]core.SummaryRecord, error) {
	if len(dims) == 0 {
		dims = core.Dimensions()
	}
	results := make([][]core.SummaryRecord, len(dims))
	g, ctx := errgroup.WithContext(ctx)
	for i, dim := range dims {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = Summarize(items, dim)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[core.Dimension][]core.SummaryRecord, len(dims))
	for i, dim := range dims {
		out[dim] = results[i]
	}
	return out, nil
}

// GrandTotal sums every record.
func GrandTotal(records []core.SummaryRecord) Totals {
	var t Totals
	for _, r := range records {
		t.TotalSemula += r.TotalSemula
		t.TotalMenjadi += r.TotalMenjadi
		t.TotalSelisih += r.TotalSelisih
		t.NewItems += r.NewItems
		t.ChangedItems += r.ChangedItems
		t.TotalItems += r.TotalItems
	}
	return t
}

// SortByKey orders records by their dimension key.
func SortByKey(records []core.SummaryRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Key < records[j].Key
	})
}
