// Package tracker is the engine over the persisted Store document: reads
// with repair, field-level mutators that persist the whole document, and
// the aggregations behind the weekly, monthly and yearly views.
//
// Read entry points never fail. Unreadable or unparsable data degrades to
// an empty Store and is logged. Write entry points return the merged
// record even when persisting it failed; the error then wraps ErrPersist.
// A write never replaces a document it could not read, and an unparsable
// document is copied to BackupKey before it is replaced.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"drivertrack/internal/calendar"
	"drivertrack/internal/core"
	"drivertrack/internal/kv"
	"drivertrack/internal/log"
)

// DefaultKey is the key the Store is persisted under.
const DefaultKey = "driver-tracker-data-v1"

const backupSuffix = ".unreadable"

// ErrPersist marks a write the back end rejected. The in-memory result
// returned alongside it is still valid.
var ErrPersist = errors.New("persist store")

type Engine struct {
	store  kv.Store
	key    string
	cal    *calendar.Calendar
	logger *log.Logger
	now    func() time.Time

	// mu serializes read-modify-write cycles within the process.
	mu sync.Mutex
}

type Option func(*Engine)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(e *Engine) {
		if key != "" {
			e.key = key
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l.WithComponent(log.ComponentTracker)
		}
	}
}

// WithCalendar sets the calendar used for week partitioning and labels.
func WithCalendar(c *calendar.Calendar) Option {
	return func(e *Engine) {
		if c != nil {
			e.cal = c
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

func New(store kv.Store, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		key:    DefaultKey,
		cal:    calendar.New("en"),
		logger: log.Wrap(nil, log.ComponentTracker),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Key() string                  { return e.key }
func (e *Engine) Calendar() *calendar.Calendar { return e.cal }
func (e *Engine) Now() time.Time               { return e.now() }

// Backend returns the underlying key-value store.
func (e *Engine) Backend() kv.Store { return e.store }

// GetStore loads and parses the whole document. A missing key, a back-end
// failure or unparsable JSON all yield an empty Store.
func (e *Engine) GetStore(ctx context.Context) core.Store {
	raw, ok, err := e.store.Get(ctx, e.key)
	if err != nil {
		e.logger.WarnContext(ctx, "Store read failed, using empty store",
			log.FieldKey, e.key, log.FieldError, err)
		return core.Store{}
	}
	if !ok || raw == "" {
		return core.Store{}
	}
	s, err := decodeStore(raw)
	if err != nil {
		e.logger.WarnContext(ctx, "Store is not valid JSON, using empty store",
			log.FieldKey, e.key, log.FieldError, err)
		return core.Store{}
	}
	return s
}

// BackupKey is where an unparsable document is copied before the first
// write replaces it.
func (e *Engine) BackupKey() string { return e.key + backupSuffix }

// load is GetStore for paths that write the result back. A failed read is
// an error so the caller does not overwrite data it never saw, and an
// unparsable value is backed up before it is given up.
func (e *Engine) load(ctx context.Context) (core.Store, error) {
	raw, ok, err := e.store.Get(ctx, e.key)
	if err != nil {
		return core.Store{}, fmt.Errorf("%w: read: %w", ErrPersist, err)
	}
	if !ok || raw == "" {
		return core.Store{}, nil
	}
	s, err := decodeStore(raw)
	if err == nil {
		return s, nil
	}
	if berr := e.store.Set(ctx, e.BackupKey(), raw); berr != nil {
		return core.Store{}, fmt.Errorf("%w: back up unreadable store: %w", ErrPersist, berr)
	}
	e.logger.WarnContext(ctx, "Unreadable store backed up, starting from an empty store",
		log.FieldKey, e.key, "backup_key", e.BackupKey(), log.FieldError, err)
	return core.Store{}, nil
}

func decodeStore(raw string) (core.Store, error) {
	var s core.Store
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	if s == nil {
		return core.Store{}, nil
	}
	return s, nil
}

// SaveStore serializes and writes the whole document.
func (e *Engine) SaveStore(ctx context.Context, s core.Store) error {
	if s == nil {
		s = core.Store{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrPersist, err)
	}
	if err := e.store.Set(ctx, e.key, string(data)); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	e.logger.DebugContext(ctx, "Store saved", log.FieldKey, e.key, "bytes", len(data))
	return nil
}

// EnsureMonth guarantees s[year][month] exists and is fully shaped. It
// mutates s in place when s is non-nil and returns it.
func EnsureMonth(s core.Store, year, month int) core.Store {
	if s == nil {
		s = core.Store{}
	}
	months := s[year]
	if months == nil {
		months = map[int]*core.MonthDocument{}
		s[year] = months
	}
	doc := months[month]
	if doc == nil {
		doc = core.NewMonthDocument()
		months[month] = doc
	}
	doc.Normalize()
	return s
}

// GetMonthData returns the repaired month document and writes the repaired
// Store back. The returned document is a copy. Nothing is written when the
// Store could not be read.
func (e *Engine) GetMonthData(ctx context.Context, year, month int) *core.MonthDocument {
	unlock := e.lock(ctx)
	defer unlock()

	s, err := e.load(ctx)
	s = EnsureMonth(s, year, month)
	if err == nil {
		err = e.SaveStore(ctx, s)
	}
	if err != nil {
		e.logger.WarnContext(ctx, "Repaired month could not be saved",
			log.NewFields().WithMonth(year, month).WithOperation(log.OpRepair).WithError(err).ToSlice()...)
	}
	return s[year][month].Clone()
}

// mutate applies fn to the ensured month and persists the Store. When the
// Store cannot be read fn still runs, so the caller gets its merged record,
// but nothing is written.
func (e *Engine) mutate(ctx context.Context, op string, year, month int, fn func(doc *core.MonthDocument), extra ...any) error {
	unlock := e.lock(ctx)
	defer unlock()

	s, err := e.load(ctx)
	s = EnsureMonth(s, year, month)
	fn(s[year][month])
	if err == nil {
		err = e.SaveStore(ctx, s)
	}
	e.logWrite(ctx, op, year, month, err, extra...)
	return err
}

// SetDayData merges patch into the day record, creating it lazily.
func (e *Engine) SetDayData(ctx context.Context, year, month, day int, patch core.DayPatch) (core.DayRecord, error) {
	var rec core.DayRecord
	err := e.mutate(ctx, log.OpSetDay, year, month, func(doc *core.MonthDocument) {
		rec = doc.Days[day].Merge(patch)
		doc.Days[day] = rec
	}, log.FieldDay, day)
	return rec, err
}

// SetWeekData merges patch into a legacy week slot.
func (e *Engine) SetWeekData(ctx context.Context, year, month, week int, patch core.WeekPatch) (core.WeekRecord, error) {
	var rec core.WeekRecord
	err := e.mutate(ctx, log.OpSetWeek, year, month, func(doc *core.MonthDocument) {
		rec = doc.Weeks[week].Merge(patch)
		doc.Weeks[week] = rec
	}, log.FieldWeek, week)
	return rec, err
}

// SetMonthlyExpenses merges patch into the month's fixed expenses.
func (e *Engine) SetMonthlyExpenses(ctx context.Context, year, month int, patch core.MonthlyExpensesPatch) (core.MonthlyExpenses, error) {
	var me core.MonthlyExpenses
	err := e.mutate(ctx, log.OpSetMonth, year, month, func(doc *core.MonthDocument) {
		doc.MonthlyExpenses = doc.MonthlyExpenses.Merge(patch)
		me = doc.MonthlyExpenses
	})
	return me, err
}

func (e *Engine) logWrite(ctx context.Context, op string, year, month int, err error, extra ...any) {
	fields := append(log.NewFields().WithMonth(year, month).WithOperation(op).ToSlice(), extra...)
	if err != nil {
		e.logger.WarnContext(ctx, "Write not persisted", append(fields, log.FieldError, err)...)
		return
	}
	e.logger.DebugContext(ctx, "Write persisted", fields...)
}

// lock takes the process mutex and, when the back end is shared between
// processes, its distributed lock. A failed distributed lock is logged and
// the write proceeds.
func (e *Engine) lock(ctx context.Context) func() {
	e.mu.Lock()
	locker, ok := e.store.(kv.Locker)
	if !ok {
		return e.mu.Unlock
	}
	release, err := locker.Lock(ctx, e.key)
	if err != nil {
		e.logger.WarnContext(ctx, "Could not obtain store lock, proceeding without it",
			log.FieldKey, e.key, log.FieldError, err)
		return e.mu.Unlock
	}
	return func() {
		release()
		e.mu.Unlock()
	}
}
