// Package worker mirrors the budget workbook to a spreadsheet in response
// to item events.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"anggaran/internal/amqp"
	"anggaran/internal/export"
	"anggaran/internal/log"
	"anggaran/internal/sheets"
)

// Exporter produces the full set of tables to mirror.
// *services.BudgetService implements it.
type Exporter interface {
	ExportTables(ctx context.Context) ([]export.Table, error)
}

type Config struct {
	// BatchSize is the number of pending events that triggers an immediate export (default: 10).
	BatchSize int

	// Interval is how often pending events are flushed (default: 30s).
	Interval time.Duration

	// FullInterval forces an export with no pending events. Zero disables it.
	FullInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:    10,
		Interval:     30 * time.Second,
		FullInterval: 15 * time.Minute,
	}
}

// SyncWorker coalesces item events and rewrites the mirror once per batch.
// Every export is a full rewrite, so events only decide when to export.
type SyncWorker struct {
	source Exporter
	sheets sheets.TableWriter
	config Config
	logger *log.Logger

	mu       sync.Mutex
	pending  int
	versions map[string]int64
	exports  int
	lastErr  error

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncWorker(source Exporter, writer sheets.TableWriter, config Config, logger *log.Logger) *SyncWorker {
	def := DefaultConfig()
	if config.BatchSize < 1 {
		config.BatchSize = def.BatchSize
	}
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &SyncWorker{
		source:   source,
		sheets:   writer,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
		versions: map[string]int64{},
	}
}

// HandleItemEvent records an event and exports when the batch is full.
// Redelivered or out-of-order events for an item are ignored. Export
// failures are logged and left pending for the next tick, so the
// delivery is still acknowledged.
func (w *SyncWorker) HandleItemEvent(ctx context.Context, ev *amqp.ItemEvent) error {
	w.mu.Lock()
	if ev.ID != "" {
		if last, ok := w.versions[ev.ID]; ok && ev.Version <= last && ev.Action != amqp.ActionRPD {
			w.mu.Unlock()
			w.logger.DebugContext(ctx, "Skipping stale item event",
				log.FieldItemID, ev.ID, log.FieldItemVersion, ev.Version, "seen_version", last)
			return nil
		}
		w.versions[ev.ID] = ev.Version
	}
	w.pending++
	full := w.pending >= w.config.BatchSize
	w.mu.Unlock()

	w.logger.DebugContext(ctx, "Item event queued",
		log.FieldItemID, ev.ID, log.FieldItemVersion, ev.Version, "action", ev.Action)

	if full {
		if err := w.Flush(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Batch export failed", log.FieldError, err)
		}
	}
	return nil
}

// Flush exports now if anything is pending.
func (w *SyncWorker) Flush(ctx context.Context) error {
	w.mu.Lock()
	n := w.pending
	w.mu.Unlock()
	if n == 0 {
		return nil
	}
	return w.export(ctx, n)
}

// FullSync exports regardless of pending events.
func (w *SyncWorker) FullSync(ctx context.Context) error {
	w.mu.Lock()
	n := w.pending
	w.mu.Unlock()
	return w.export(ctx, n)
}

func (w *SyncWorker) export(ctx context.Context, covered int) error {
	start := time.Now()
	tables, err := w.source.ExportTables(ctx)
	if err == nil {
		err = w.sheets.WriteTables(ctx, tables...)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastErr = err
	if err != nil {
		return fmt.Errorf("export tables: %w", err)
	}
	// Events that arrived during the export stay pending.
	w.pending -= covered
	if w.pending < 0 {
		w.pending = 0
	}
	w.exports++

	w.logger.InfoContext(ctx, "Workbook mirrored",
		log.FieldOperation, log.OpSync,
		"tables", len(tables),
		"events", covered,
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

// Start runs the flush loop until Stop or ctx cancellation. The mirror is
// refreshed once at startup to recover from missed events.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	if err := w.FullSync(ctx); err != nil {
		w.logger.WarnContext(ctx, "Startup export failed", log.FieldError, err)
	}

	go w.runLoop(ctx)

	w.logger.InfoContext(ctx, "Sync worker started",
		"interval", w.config.Interval,
		"full_interval", w.config.FullInterval,
		"batch_size", w.config.BatchSize)
	return nil
}

func (w *SyncWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	var fullC <-chan time.Time
	if w.config.FullInterval > 0 {
		full := time.NewTicker(w.config.FullInterval)
		defer full.Stop()
		fullC = full.C
	}

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Flush(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Scheduled export failed", log.FieldError, err)
			}
		case <-fullC:
			if err := w.FullSync(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Full export failed", log.FieldError, err)
			}
		}
	}
}

// Stop ends the loop and flushes what is still pending.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Sync worker stop timed out")
		return ctx.Err()
	}
	if err := w.Flush(ctx); err != nil {
		return err
	}
	w.logger.InfoContext(ctx, "Sync worker stopped gracefully")
	return nil
}

// Stats describe the worker's progress.
type Stats struct {
	Pending int
	Exports int
	LastErr error
}

func (w *SyncWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{Pending: w.pending, Exports: w.exports, LastErr: w.lastErr}
}
