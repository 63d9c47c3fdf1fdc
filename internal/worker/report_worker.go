// Package worker keeps the derived outputs of the store up to date: the
// Google Sheet summary rows, the sqlite summary snapshots and the yearly
// workbooks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"drivertrack/internal/amqp"
	"drivertrack/internal/core"
	"drivertrack/internal/export"
	"drivertrack/internal/log"
	"drivertrack/internal/sheets"
	"drivertrack/internal/tracker"
)

// sheetConcurrency caps the parallel row writes of a full-year refresh.
const sheetConcurrency = 4

// SnapshotWriter stores the last computed summary of a month.
type SnapshotWriter interface {
	SaveSnapshot(ctx context.Context, year, month int, s core.MonthSummary) error
}

// ReportWorker recomputes summaries from the store and pushes them to the
// configured outputs. Every output is optional.
type ReportWorker struct {
	engine    *tracker.Engine
	sheets    sheets.SummaryWriter
	snapshots SnapshotWriter
	exportDir string
	logger    *log.Logger

	// exportMu serializes workbook rewrites.
	exportMu sync.Mutex
}

type Option func(*ReportWorker)

func WithSheets(w sheets.SummaryWriter) Option {
	return func(r *ReportWorker) { r.sheets = w }
}

func WithSnapshots(s SnapshotWriter) Option {
	return func(r *ReportWorker) { r.snapshots = s }
}

// WithExportDir enables rewriting <dir>/<year>.xlsx.
func WithExportDir(dir string) Option {
	return func(r *ReportWorker) { r.exportDir = dir }
}

func WithLogger(l *log.Logger) Option {
	return func(r *ReportWorker) {
		if l != nil {
			r.logger = l.WithComponent(log.ComponentWorker)
		}
	}
}

func NewReportWorker(engine *tracker.Engine, opts ...Option) *ReportWorker {
	w := &ReportWorker{
		engine: engine,
		logger: log.Wrap(nil, log.ComponentWorker),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Enabled reports whether at least one output is configured.
func (w *ReportWorker) Enabled() bool {
	return w.sheets != nil || w.snapshots != nil || w.exportDir != ""
}

// HandleMonthChanged is the amqp.Handler for change events. A refresh event
// recomputes the whole year.
func (w *ReportWorker) HandleMonthChanged(ctx context.Context, msg *amqp.MonthChangedMessage) error {
	w.logger.InfoContext(ctx, "Processing month changed message",
		log.NewFields().WithMonth(msg.Year, msg.Month).
			With(log.FieldMessageID, msg.ID).With(log.FieldKind, msg.Kind).ToSlice()...)

	if msg.Kind == amqp.KindRefresh {
		return w.RefreshYear(ctx, msg.Year)
	}
	if err := core.ValidateMonth(msg.Month); err != nil {
		return err
	}

	rep := w.engine.YearReport(ctx, msg.Year)
	row := rep.Months[msg.Month]

	var errs []error
	if err := w.writeRow(ctx, msg.Year, row); err != nil {
		errs = append(errs, err)
	}
	if err := w.writeExport(ctx, rep); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// RefreshYear rewrites every month of year from a single store read.
func (w *ReportWorker) RefreshYear(ctx context.Context, year int) error {
	rep := w.engine.YearReport(ctx, year)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sheetConcurrency)
	for _, row := range rep.Months {
		g.Go(func() error {
			return w.writeRow(gctx, year, row)
		})
	}
	rowsErr := g.Wait()

	exportErr := w.writeExport(ctx, rep)
	if err := errors.Join(rowsErr, exportErr); err != nil {
		return fmt.Errorf("refresh %d: %w", year, err)
	}
	w.logger.InfoContext(ctx, "Year refreshed",
		log.FieldYear, year, log.FieldOperation, log.OpRefresh)
	return nil
}

func (w *ReportWorker) writeRow(ctx context.Context, year int, row tracker.MonthRow) error {
	// LogFields is a map, so every log call gets its own.
	fields := func() log.LogFields { return log.NewFields().WithMonth(year, row.Month) }
	var errs []error

	if w.snapshots != nil {
		if err := w.snapshots.SaveSnapshot(ctx, year, row.Month, row.Summary); err != nil {
			w.logger.ErrorContext(ctx, "Failed to save summary snapshot", fields().WithError(err).ToSlice()...)
			errs = append(errs, fmt.Errorf("snapshot %d-%02d: %w", year, row.Month+1, err))
		}
	}
	if w.sheets != nil {
		ref, err := w.sheets.WriteMonth(ctx, year, row.Month, row.Label, row.Summary)
		if err != nil {
			w.logger.ErrorContext(ctx, "Failed to write summary row", fields().WithError(err).ToSlice()...)
			errs = append(errs, fmt.Errorf("sheet row %d-%02d: %w", year, row.Month+1, err))
		} else {
			w.logger.DebugContext(ctx, "Summary row written", fields().With("ref", ref).ToSlice()...)
		}
	}
	return errors.Join(errs...)
}

func (w *ReportWorker) writeExport(ctx context.Context, rep tracker.YearReport) error {
	if w.exportDir == "" {
		return nil
	}
	w.exportMu.Lock()
	defer w.exportMu.Unlock()

	path := export.YearFile(w.exportDir, rep.Year)
	if err := export.SaveYearReport(path, rep); err != nil {
		w.logger.ErrorContext(ctx, "Failed to export yearly workbook",
			log.FieldYear, rep.Year, log.FieldOperation, log.OpExport, log.FieldError, err)
		return fmt.Errorf("export %d: %w", rep.Year, err)
	}
	w.logger.DebugContext(ctx, "Yearly workbook exported", log.FieldYear, rep.Year, "path", path)
	return nil
}
