// Package services orchestrates budget operations across storage, the
// revision engine, item events and the summary cache.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"anggaran/internal/amqp"
	"anggaran/internal/cache"
	"anggaran/internal/core"
	"anggaran/internal/export"
	"anggaran/internal/importer"
	"anggaran/internal/log"
	"anggaran/internal/revision"
	"anggaran/internal/rpd"
	"anggaran/internal/storage"
	"anggaran/internal/summary"
)

// EventPublisher announces item mutations. *amqp.Client implements it.
type EventPublisher interface {
	PublishItemEvent(ctx context.Context, ev *amqp.ItemEvent) error
}

type nopPublisher struct{}

func (nopPublisher) PublishItemEvent(context.Context, *amqp.ItemEvent) error { return nil }

// SummaryReport is the aggregation of the selected items along one dimension.
type SummaryReport struct {
	Dimension core.Dimension       `json:"dimension"`
	Filter    core.FilterSelection `json:"filter"`
	Records   []core.SummaryRecord `json:"records"`
	Totals    summary.Totals       `json:"totals"`
}

// ImportReport tells the caller what became of each data row.
type ImportReport struct {
	Imported  []storage.StoredItem   `json:"imported"`
	Skipped   []*core.ImportRowError `json:"-"`
	Warnings  []importer.RowWarning  `json:"warnings"`
	Empty     int                    `json:"empty"`
	HeaderRow int                    `json:"header_row"`
}

// BudgetService is safe for concurrent use. Mutations are serialized so a
// read-modify-write on one item never interleaves with another.
type BudgetService struct {
	repo         storage.Repository
	events       EventPublisher
	summaries    cache.Cache[SummaryReport]
	logger       *log.Logger
	newID        func() string
	fallbackUnit string

	mu sync.Mutex
}

type Option func(*BudgetService)

func WithEvents(p EventPublisher) Option {
	return func(s *BudgetService) {
		if p != nil {
			s.events = p
		}
	}
}

func WithSummaryCache(c cache.Cache[SummaryReport]) Option {
	return func(s *BudgetService) { s.summaries = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *BudgetService) { s.logger = l.WithComponent(log.ComponentRevision) }
}

func WithIDGenerator(f func() string) Option {
	return func(s *BudgetService) { s.newID = f }
}

func WithFallbackUnit(unit string) Option {
	return func(s *BudgetService) {
		if strings.TrimSpace(unit) != "" {
			s.fallbackUnit = unit
		}
	}
}

func NewBudgetService(repo storage.Repository, opts ...Option) *BudgetService {
	s := &BudgetService{
		repo:         repo,
		events:       nopPublisher{},
		summaries:    cache.NewLRUCache[SummaryReport](256, 10*time.Minute),
		logger:       log.Discard(),
		newID:        uuid.NewString,
		fallbackUnit: importer.DefaultFallbackUnit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the stored items inside sel, deleted ones included.
func (s *BudgetService) List(ctx context.Context, sel core.FilterSelection) ([]storage.StoredItem, error) {
	all, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	out := make([]storage.StoredItem, 0, len(all))
	for _, it := range all {
		if sel.Matches(it.BudgetItem) {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *BudgetService) Get(ctx context.Context, id string) (storage.StoredItem, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *BudgetService) Create(ctx context.Context, role core.Role, fields core.ItemFields) (storage.StoredItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := revision.Create(role, s.newID(), fields)
	if err != nil {
		return storage.StoredItem{}, err
	}
	return s.save(ctx, item, amqp.ActionCreated, log.OpCreate)
}

func (s *BudgetService) Edit(ctx context.Context, id string, role core.Role, fields core.ItemFields) (storage.StoredItem, error) {
	return s.mutate(ctx, id, amqp.ActionUpdated, log.OpUpdate, func(it core.BudgetItem) (core.BudgetItem, error) {
		return revision.Edit(it, role, fields)
	})
}

func (s *BudgetService) Approve(ctx context.Context, id string, role core.Role) (storage.StoredItem, error) {
	return s.mutate(ctx, id, amqp.ActionApproved, log.OpApprove, func(it core.BudgetItem) (core.BudgetItem, error) {
		return revision.Approve(it, role)
	})
}

func (s *BudgetService) Reject(ctx context.Context, id string, role core.Role) (storage.StoredItem, error) {
	return s.mutate(ctx, id, amqp.ActionRejected, log.OpReject, func(it core.BudgetItem) (core.BudgetItem, error) {
		return revision.Reject(it, role)
	})
}

func (s *BudgetService) Delete(ctx context.Context, id string, role core.Role) (storage.StoredItem, error) {
	return s.mutate(ctx, id, amqp.ActionDeleted, log.OpDelete, func(it core.BudgetItem) (core.BudgetItem, error) {
		return revision.Delete(it, role)
	})
}

func (s *BudgetService) mutate(ctx context.Context, id string, action amqp.Action, op string, fn func(core.BudgetItem) (core.BudgetItem, error)) (storage.StoredItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return storage.StoredItem{}, err
	}
	next, err := fn(current.BudgetItem)
	if err != nil {
		logArgs := log.NewFields().WithOperation(op).WithError(err)
		logArgs[log.FieldItemID] = id
		s.logger.WarnContext(ctx, "Item mutation rejected", logArgs.ToSlice()...)
		return storage.StoredItem{}, err
	}
	saved, err := s.save(ctx, next, action, op)
	if err != nil {
		return storage.StoredItem{}, err
	}
	if next.JumlahMenjadi != current.JumlahMenjadi {
		s.syncRPD(ctx, next)
	}
	return saved, nil
}

// save persists the item, drops cached summaries and publishes the event.
// Publishing failures are logged, the local write stands.
func (s *BudgetService) save(ctx context.Context, item core.BudgetItem, action amqp.Action, op string) (storage.StoredItem, error) {
	version, err := s.repo.SaveItem(ctx, item)
	if err != nil {
		return storage.StoredItem{}, fmt.Errorf("save item %s: %w", item.ID, err)
	}
	s.summaries.Purge()

	s.logger.InfoContext(ctx, "Item saved", log.NewFields().
		WithOperation(op).
		WithItem(item.ID, version, string(item.Status), item.JumlahSemula, item.JumlahMenjadi).
		ToSlice()...)

	s.publish(ctx, item.ID, version, action)
	return storage.StoredItem{BudgetItem: item, Version: version}, nil
}

func (s *BudgetService) publish(ctx context.Context, id string, version int64, action amqp.Action) {
	if err := s.events.PublishItemEvent(ctx, amqp.NewItemEvent(id, version, action)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish item event",
			log.FieldItemID, id, log.FieldItemVersion, version, "action", action, log.FieldError, err)
	}
}

// syncRPD re-derives a stored plan after its item's revised total moved.
func (s *BudgetService) syncRPD(ctx context.Context, item core.BudgetItem) {
	plan, err := s.repo.GetRPD(ctx, item.ID)
	if errors.Is(err, core.ErrNotFound) {
		return
	}
	if err == nil {
		err = s.repo.SaveRPD(ctx, rpd.Sync(plan, item.JumlahMenjadi))
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to sync disbursement plan", log.FieldItemID, item.ID, log.FieldError, err)
	}
}

func summaryKey(dim core.Dimension, sel core.FilterSelection) string {
	return strings.Join([]string{
		string(dim), sel.Value(core.DimProgramPembebanan), sel.Value(core.DimKegiatan),
		sel.Value(core.DimRincianOutput), sel.Value(core.DimKomponenOutput),
		sel.Value(core.DimSubKomponen), sel.Value(core.DimAkun),
	}, "\x1f")
}

// Summary aggregates the items inside sel along dim. Results are cached
// until the next mutation.
func (s *BudgetService) Summary(ctx context.Context, dim core.Dimension, sel core.FilterSelection) (SummaryReport, error) {
	if !dim.IsValid() {
		return SummaryReport{}, fmt.Errorf("%w: unknown dimension %q", core.ErrValidation, dim)
	}
	key := summaryKey(dim, sel)
	if rep, ok := s.summaries.Get(key); ok {
		return rep, nil
	}

	stored, err := s.repo.ListItems(ctx)
	if err != nil {
		return SummaryReport{}, fmt.Errorf("list items: %w", err)
	}
	records := summary.Summarize(summary.Active(summary.Filter(storage.Items(stored), sel)), dim)
	rep := SummaryReport{
		Dimension: dim,
		Filter:    sel,
		Records:   records,
		Totals:    summary.GrandTotal(records),
	}
	s.summaries.Set(key, rep)
	return rep, nil
}

// GetRPD returns the plan of an item, an empty one if none was saved yet.
// The status always reflects the item's current revised total.
func (s *BudgetService) GetRPD(ctx context.Context, id string) (core.RPDItem, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return core.RPDItem{}, err
	}
	plan, err := s.repo.GetRPD(ctx, id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return rpd.Reconcile(id, [12]int64{}, item.JumlahMenjadi)
	case err != nil:
		return core.RPDItem{}, fmt.Errorf("get rpd %s: %w", id, err)
	}
	return rpd.Sync(plan, item.JumlahMenjadi), nil
}

// UpdateRPD sets the given months of an item's plan.
func (s *BudgetService) UpdateRPD(ctx context.Context, id string, months map[time.Month]int64) (core.RPDItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return core.RPDItem{}, err
	}
	if item.Status == core.StatusDeleted {
		return core.RPDItem{}, fmt.Errorf("%w: item is deleted", core.ErrValidation)
	}
	plan, err := s.GetRPD(ctx, id)
	if err != nil {
		return core.RPDItem{}, err
	}
	plan, err = rpd.SetMonths(plan, months)
	if err != nil {
		return core.RPDItem{}, err
	}
	if err := s.repo.SaveRPD(ctx, plan); err != nil {
		return core.RPDItem{}, fmt.Errorf("save rpd %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "Disbursement plan saved",
		log.FieldItemID, id, log.FieldRPDStatus, plan.Status, "jumlah_rpd", plan.JumlahRPD)
	s.publish(ctx, id, item.Version, amqp.ActionRPD)
	return plan, nil
}

// Import normalizes a sheet grid and creates one item per valid row. It
// needs the admin role because rows carry the original allocation. A bad
// header fails the whole batch; bad rows are reported and skipped.
func (s *BudgetService) Import(ctx context.Context, role core.Role, grid importer.Grid, scope core.FilterSelection) (ImportReport, error) {
	if !role.IsAdmin() {
		return ImportReport{}, fmt.Errorf("%w: import requires admin role", core.ErrPermissionDenied)
	}
	res, err := importer.Normalize(grid, importer.Options{FallbackUnit: s.fallbackUnit, Scope: scope})
	if err != nil {
		return ImportReport{}, err
	}

	rep := ImportReport{
		Skipped:   res.Skipped,
		Warnings:  res.Warnings,
		Empty:     res.Empty,
		HeaderRow: res.HeaderRow,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, fields := range res.Rows {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		item, err := revision.Create(role, s.newID(), fields)
		if err != nil {
			rep.Skipped = append(rep.Skipped, &core.ImportRowError{Row: res.RowNumbers[i], Err: err})
			continue
		}
		version, err := s.repo.SaveItem(ctx, item)
		if err != nil {
			return rep, fmt.Errorf("save imported item: %w", err)
		}
		rep.Imported = append(rep.Imported, storage.StoredItem{BudgetItem: item, Version: version})
	}
	if len(rep.Imported) > 0 {
		s.summaries.Purge()
		s.publish(ctx, "", 0, amqp.ActionImported)
	}

	s.logger.InfoContext(ctx, "Import finished",
		log.FieldOperation, log.OpImport,
		log.FieldImportRows, len(rep.Imported),
		log.FieldImportSkipped, len(rep.Skipped),
		"empty_rows", rep.Empty,
		"warnings", len(rep.Warnings))
	return rep, nil
}

// ExportTables lays out the full workbook: items, one summary sheet per
// dimension and the disbursement plans.
func (s *BudgetService) ExportTables(ctx context.Context) ([]export.Table, error) {
	stored, err := s.repo.ListItems(ctx)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	plans, err := s.repo.ListRPD(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rpd: %w", err)
	}
	items := storage.Items(stored)
	dims := core.Dimensions()
	byDim, err := summary.SummarizeAll(ctx, summary.Active(items), dims...)
	if err != nil {
		return nil, err
	}

	tables := []export.Table{export.Items(items)}
	for _, d := range dims {
		tables = append(tables, export.Summary(d, byDim[d]))
	}
	tables = append(tables, export.RPD(plans))
	return tables, nil
}

func (s *BudgetService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
