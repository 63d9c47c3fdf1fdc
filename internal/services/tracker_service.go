package services

import (
	"context"
	"errors"
	"fmt"
	"io"

	"drivertrack/internal/amqp"
	"drivertrack/internal/calendar"
	"drivertrack/internal/core"
	"drivertrack/internal/log"
	"drivertrack/internal/tracker"
)

// ChangePublisher announces written months. *amqp.Client implements it.
type ChangePublisher interface {
	PublishMonthChanged(ctx context.Context, year, month int, kind string) error
}

// TrackerService validates addresses, runs the engine mutators and
// publishes a change event for every persisted write. Publishing is best
// effort: a failed publish is logged and the write still succeeds.
type TrackerService struct {
	engine    *tracker.Engine
	publisher ChangePublisher
	closers   []io.Closer
	logger    *log.Logger
	onChange  []func(year, month int)
}

type Option func(*TrackerService)

func WithPublisher(p ChangePublisher) Option {
	return func(s *TrackerService) { s.publisher = p }
}

func WithLogger(l *log.Logger) Option {
	return func(s *TrackerService) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentTracker)
		}
	}
}

// WithCloser registers a resource released by Close, such as the back end.
func WithCloser(c io.Closer) Option {
	return func(s *TrackerService) {
		if c != nil {
			s.closers = append(s.closers, c)
		}
	}
}

// OnChange registers fn to run after every write, persisted or not.
func (s *TrackerService) OnChange(fn func(year, month int)) {
	s.onChange = append(s.onChange, fn)
}

func NewTrackerService(engine *tracker.Engine, opts ...Option) *TrackerService {
	s := &TrackerService{
		engine: engine,
		logger: log.Wrap(nil, log.ComponentTracker),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TrackerService) Engine() *tracker.Engine { return s.engine }

// ValidateMonth checks a (year, month) address.
func ValidateMonth(year, month int) error {
	if err := core.ValidateYear(year); err != nil {
		return err
	}
	return core.ValidateMonth(month)
}

// ValidateDay checks day against the actual length of the month.
func ValidateDay(year, month, day int) error {
	if err := ValidateMonth(year, month); err != nil {
		return err
	}
	if day < 1 || day > calendar.DaysInMonth(year, month) {
		return fmt.Errorf("%w: %d is not a day of %d-%02d", core.ErrInvalidDay, day, year, month+1)
	}
	return nil
}

// ValidateWeek checks a legacy week slot index.
func ValidateWeek(year, month, week int) error {
	if err := ValidateMonth(year, month); err != nil {
		return err
	}
	return core.ValidateWeek(week)
}

// IsValidation reports whether err came from address validation.
func IsValidation(err error) bool {
	return errors.Is(err, core.ErrInvalidYear) ||
		errors.Is(err, core.ErrInvalidMonth) ||
		errors.Is(err, core.ErrInvalidDay) ||
		errors.Is(err, core.ErrInvalidWeek)
}

func (s *TrackerService) SetDay(ctx context.Context, year, month, day int, patch core.DayPatch) (core.DayRecord, error) {
	if err := ValidateDay(year, month, day); err != nil {
		return core.DayRecord{}, err
	}
	rec, err := s.engine.SetDayData(ctx, year, month, day, patch)
	s.afterWrite(ctx, year, month, amqp.KindDay, err)
	return rec, err
}

func (s *TrackerService) SetWeek(ctx context.Context, year, month, week int, patch core.WeekPatch) (core.WeekRecord, error) {
	if err := ValidateWeek(year, month, week); err != nil {
		return core.WeekRecord{}, err
	}
	rec, err := s.engine.SetWeekData(ctx, year, month, week, patch)
	s.afterWrite(ctx, year, month, amqp.KindWeek, err)
	return rec, err
}

func (s *TrackerService) SetMonthlyExpenses(ctx context.Context, year, month int, patch core.MonthlyExpensesPatch) (core.MonthlyExpenses, error) {
	if err := ValidateMonth(year, month); err != nil {
		return core.MonthlyExpenses{}, err
	}
	me, err := s.engine.SetMonthlyExpenses(ctx, year, month, patch)
	s.afterWrite(ctx, year, month, amqp.KindMonthlyExpenses, err)
	return me, err
}

func (s *TrackerService) afterWrite(ctx context.Context, year, month int, kind string, writeErr error) {
	for _, fn := range s.onChange {
		fn(year, month)
	}
	if writeErr != nil {
		return
	}
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No change publisher configured, skipping event",
			log.FieldYear, year, log.FieldMonth, month)
		return
	}
	if err := s.publisher.PublishMonthChanged(ctx, year, month, kind); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish month changed event",
			log.NewFields().WithMonth(year, month).WithOperation(log.OpPublish).With(log.FieldKind, kind).WithError(err).ToSlice()...)
	}
}

// Close releases the publisher and registered resources.
func (s *TrackerService) Close() error {
	var errs []error
	if c, ok := s.publisher.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close tracker service: %w", errors.Join(errs...))
	}
	return nil
}
