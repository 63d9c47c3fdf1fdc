package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivertrack/internal/core"
	"drivertrack/internal/kv/memory"
	"drivertrack/internal/log"
)

func newEngine(t *testing.T) (*Engine, *memory.Store) {
	t.Helper()
	mem := memory.New()
	return New(mem, WithLogger(log.Discard())), mem
}

func TestGetStoreEmptyAndMalformed(t *testing.T) {
	e, mem := newEngine(t)
	ctx := context.Background()

	assert.Empty(t, e.GetStore(ctx))

	for _, raw := range []string{"{not json", "[]", "null", `{"2025":"x"}`} {
		mem.Put(DefaultKey, raw)
		s := e.GetStore(ctx)
		require.NotNil(t, s, raw)
		assert.Empty(t, s, raw)
	}

	mem.FailReads = errors.New("disk gone")
	assert.Empty(t, e.GetStore(ctx))
}

func TestEnsureMonth(t *testing.T) {
	s := EnsureMonth(nil, 2025, 5)
	doc := s[2025][5]
	require.NotNil(t, doc)
	assert.Len(t, doc.Weeks, core.WeekSlots)
	assert.NotNil(t, doc.Days)
	assert.Equal(t, core.MonthlyExpenses{}, doc.MonthlyExpenses)

	doc.Days[3] = core.DayRecord{Performance: core.Performance{Revenue: 10}}
	again := EnsureMonth(s, 2025, 5)
	assert.Equal(t, 10.0, again[2025][5].Days[3].Performance.Revenue, "ensure must not reset data")
}

func TestGetMonthDataRepairsAndPersists(t *testing.T) {
	e, mem := newEngine(t)
	ctx := context.Background()

	mem.Put(DefaultKey, `{"2025":{"5":{"days":{"2":{"performance":{"revenue":42}}}}}}`)
	doc := e.GetMonthData(ctx, 2025, 5)

	require.Len(t, doc.Weeks, core.WeekSlots)
	assert.Equal(t, 42.0, doc.Days[2].Performance.Revenue)
	assert.Equal(t, 0.0, doc.Days[2].Expenses.Food)

	raw, ok := mem.Raw(DefaultKey)
	require.True(t, ok)
	var persisted map[string]map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	assert.Contains(t, persisted["2025"]["5"], "weeks")
	assert.Contains(t, persisted["2025"]["5"], "monthlyExpenses")
}

func TestGetMonthDataSurvivesWriteFailure(t *testing.T) {
	e, mem := newEngine(t)
	mem.FailWrites = errors.New("read-only")

	doc := e.GetMonthData(context.Background(), 2024, 0)
	require.NotNil(t, doc)
	assert.Len(t, doc.Weeks, core.WeekSlots)
}

func TestSetDayDataMergesFieldByField(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.SetDayData(ctx, 2025, 5, 2, core.DayPatch{
		Performance: &core.PerformancePatch{HoursWorked: core.Num(5), Revenue: core.Num(60)},
	})
	require.NoError(t, err)

	rec, err := e.SetDayData(ctx, 2025, 5, 2, core.DayPatch{
		Performance: &core.PerformancePatch{Tips: core.Num(7)},
		Expenses:    &core.ExpensesPatch{Food: core.Num(12)},
	})
	require.NoError(t, err)

	want := core.DayRecord{
		Performance: core.Performance{HoursWorked: 5, Revenue: 60, Tips: 7},
		Expenses:    core.Expenses{Food: 12},
	}
	assert.Equal(t, want, rec)
	assert.Equal(t, want, e.GetStore(ctx)[2025][5].Days[2])
}

func TestSetDayDataReturnsRecordOnPersistFailure(t *testing.T) {
	e, mem := newEngine(t)
	mem.FailWrites = errors.New("quota exceeded")

	rec, err := e.SetDayData(context.Background(), 2025, 5, 9, core.DayPatch{
		Performance: &core.PerformancePatch{Revenue: core.Num(30)},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, 30.0, rec.Performance.Revenue)
}

func TestSetWeekDataKeepsComment(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	comment := "holiday week"

	_, err := e.SetWeekData(ctx, 2025, 5, 2, core.WeekPatch{
		Performance: &core.WeekPerformancePatch{Comment: &comment},
	})
	require.NoError(t, err)

	rec, err := e.SetWeekData(ctx, 2025, 5, 2, core.WeekPatch{
		Performance: &core.WeekPerformancePatch{PerformancePatch: core.PerformancePatch{Revenue: core.Num(100)}},
	})
	require.NoError(t, err)
	assert.Equal(t, "holiday week", rec.Performance.Comment)
	assert.Equal(t, 100.0, rec.Performance.Revenue)
}

func TestSetMonthlyExpenses(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.SetMonthlyExpenses(ctx, 2025, 5, core.MonthlyExpensesPatch{Rent: core.Num(500), SVS: core.Num(200)})
	require.NoError(t, err)
	got, err := e.SetMonthlyExpenses(ctx, 2025, 5, core.MonthlyExpensesPatch{Phone: core.Num(20)})
	require.NoError(t, err)

	assert.Equal(t, core.MonthlyExpenses{Rent: 500, Phone: 20, SVS: 200}, got)
}

func TestWritesDoNotTouchOtherMonths(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.SetDayData(ctx, 2025, 4, 1, core.DayPatch{Performance: &core.PerformancePatch{Revenue: core.Num(1)}})
	require.NoError(t, err)
	_, err = e.SetDayData(ctx, 2025, 5, 1, core.DayPatch{Performance: &core.PerformancePatch{Revenue: core.Num(2)}})
	require.NoError(t, err)

	s := e.GetStore(ctx)
	assert.Equal(t, 1.0, s[2025][4].Days[1].Performance.Revenue)
	assert.Equal(t, 2.0, s[2025][5].Days[1].Performance.Revenue)
}

func TestWithKeyAndAccessors(t *testing.T) {
	mem := memory.New()
	now := time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC)
	e := New(mem, WithKey("other"), WithClock(func() time.Time { return now }))

	_, err := e.SetMonthlyExpenses(context.Background(), 2025, 5, core.MonthlyExpensesPatch{Rent: core.Num(1)})
	require.NoError(t, err)

	_, ok := mem.Raw("other")
	assert.True(t, ok)
	_, ok = mem.Raw(DefaultKey)
	assert.False(t, ok)
	assert.Equal(t, "other", e.Key())
	assert.Equal(t, now, e.Now())
	assert.Same(t, mem, e.Backend())
}

type lockingStore struct {
	*memory.Store
	locks    int
	released int
	fail     error
}

func (l *lockingStore) Lock(ctx context.Context, key string) (func(), error) {
	if l.fail != nil {
		return nil, l.fail
	}
	l.locks++
	return func() { l.released++ }, nil
}

func TestDistributedLockIsHeldAroundWrites(t *testing.T) {
	ls := &lockingStore{Store: memory.New()}
	e := New(ls, WithLogger(log.Discard()))
	ctx := context.Background()

	_, err := e.SetDayData(ctx, 2025, 0, 1, core.DayPatch{})
	require.NoError(t, err)
	e.GetMonthData(ctx, 2025, 1)
	assert.Equal(t, 2, ls.locks)
	assert.Equal(t, 2, ls.released)

	ls.fail = errors.New("lock timeout")
	_, err = e.SetDayData(ctx, 2025, 0, 2, core.DayPatch{Performance: &core.PerformancePatch{Revenue: core.Num(3)}})
	require.NoError(t, err, "lock failure must not block the write")
	assert.Equal(t, 3.0, e.GetStore(ctx)[2025][0].Days[2].Performance.Revenue)
}

func TestFailedReadDoesNotOverwriteOtherMonths(t *testing.T) {
	e, mem := newEngine(t)
	ctx := context.Background()
	_, err := e.SetDayData(ctx, 2024, 3, 5, core.DayPatch{Performance: &core.PerformancePatch{Revenue: core.Num(999)}})
	require.NoError(t, err)
	before, _ := mem.Raw(DefaultKey)

	mem.FailReads = errors.New("read timeout")
	rec, err := e.SetDayData(ctx, 2025, 0, 1, core.DayPatch{Performance: &core.PerformancePatch{HoursWorked: core.Num(1)}})
	require.ErrorIs(t, err, ErrPersist)
	assert.Equal(t, 1.0, rec.Performance.HoursWorked, "merged record is still returned")

	_, err = e.SetWeekData(ctx, 2025, 0, 1, core.WeekPatch{})
	require.ErrorIs(t, err, ErrPersist)
	_, err = e.SetMonthlyExpenses(ctx, 2025, 0, core.MonthlyExpensesPatch{Rent: core.Num(1)})
	require.ErrorIs(t, err, ErrPersist)
	doc := e.GetMonthData(ctx, 2025, 0)
	assert.Len(t, doc.Weeks, core.WeekSlots)

	mem.FailReads = nil
	after, _ := mem.Raw(DefaultKey)
	assert.Equal(t, before, after, "nothing may be written after a failed read")
	assert.Equal(t, 999.0, e.ComputeMonthSummary(ctx, 2024, 3, nil).Revenue)
}

func TestMistypedStoredFieldKeepsDocument(t *testing.T) {
	e, mem := newEngine(t)
	ctx := context.Background()
	mem.Put(DefaultKey, `{"2024":{"3":{"days":{"5":{"performance":{"revenue":999,"tips":"5"},"expenses":{}}}}}}`)

	e.GetMonthData(ctx, 2025, 0)

	sum := e.ComputeMonthSummary(ctx, 2024, 3, nil)
	assert.Equal(t, 999.0, sum.Revenue)
	assert.Equal(t, 5.0, sum.Tips)
	_, ok := e.GetStore(ctx)[2025][0]
	assert.True(t, ok, "repaired month is persisted alongside the old data")
	_, backedUp := mem.Raw(e.BackupKey())
	assert.False(t, backedUp)
}

func TestUnparsableStoreIsBackedUpBeforeWrite(t *testing.T) {
	e, mem := newEngine(t)
	ctx := context.Background()
	mem.Put(DefaultKey, `[1,2]`)

	_, err := e.SetDayData(ctx, 2025, 0, 1, core.DayPatch{Performance: &core.PerformancePatch{Revenue: core.Num(3)}})
	require.NoError(t, err)

	backup, ok := mem.Raw(e.BackupKey())
	require.True(t, ok)
	assert.Equal(t, `[1,2]`, backup)
	assert.Equal(t, 3.0, e.GetStore(ctx)[2025][0].Days[1].Performance.Revenue)
}

type backupRefusingStore struct {
	*memory.Store
	backupKey string
}

func (b *backupRefusingStore) Set(ctx context.Context, key, value string) error {
	if key == b.backupKey {
		return errors.New("disk full")
	}
	return b.Store.Set(ctx, key, value)
}

func TestUnparsableStoreIsKeptWhenBackupFails(t *testing.T) {
	mem := memory.New()
	store := &backupRefusingStore{Store: mem, backupKey: DefaultKey + backupSuffix}
	e := New(store, WithLogger(log.Discard()))
	mem.Put(DefaultKey, `"broken"`)

	_, err := e.SetMonthlyExpenses(context.Background(), 2025, 0, core.MonthlyExpensesPatch{Rent: core.Num(1)})
	require.ErrorIs(t, err, ErrPersist)
	raw, _ := mem.Raw(DefaultKey)
	assert.Equal(t, `"broken"`, raw)
}
