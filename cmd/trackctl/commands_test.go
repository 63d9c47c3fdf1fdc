package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivertrack/internal/core"
	"drivertrack/internal/kv/memory"
	"drivertrack/internal/log"
	"drivertrack/internal/services"
	"drivertrack/internal/tracker"
)

func newTestApp(t *testing.T) (*app, *tracker.Engine) {
	t.Helper()
	engine := tracker.New(memory.New(), tracker.WithLogger(log.Discard()))
	svc := services.NewTrackerService(engine, services.WithLogger(log.Discard()))
	return &app{svc: svc}, engine
}

func execute(t *testing.T, a *app, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestDaySetMergesOnlyGivenFlags(t *testing.T) {
	a, engine := newTestApp(t)

	_, err := execute(t, a, "day", "set", "2025", "5", "3", "--hours", "20", "--revenue", "1200", "--tips", "60")
	require.NoError(t, err)
	out, err := execute(t, a, "day", "set", "2025", "5", "3", "--food", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "HOURS")

	got := engine.GetStore(context.Background())[2025][5].Days[3]
	want := core.DayRecord{
		Performance: core.Performance{HoursWorked: 20, Revenue: 1200, Tips: 60},
		Expenses:    core.Expenses{Food: 100},
	}
	assert.Equal(t, want, got)
}

func TestSummaryJSONAndYAML(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := execute(t, a, "day", "set", "2025", "5", "3", "--revenue", "1200", "--tips", "60")
	require.NoError(t, err)

	out, err := execute(t, a, "-o", "json", "summary", "2025", "5")
	require.NoError(t, err)
	var s core.MonthSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, 1260.0, s.Gross)
	assert.Equal(t, 1200.0, s.Revenue)

	out, err = execute(t, a, "--output", "yaml", "summary", "2025", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "gross: 1260\n")
	assert.Contains(t, out, "revenue: 1200\n")
}

func TestWeeksTable(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := execute(t, a, "day", "set", "2025", "5", "2", "--revenue", "50")
	require.NoError(t, err)

	out, err := execute(t, a, "weeks", "2025", "5")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7, "header plus six ranges for June 2025")
	assert.True(t, strings.HasPrefix(lines[0], "WEEK"))
	assert.Contains(t, lines[2], "2-8 jun")
	assert.Contains(t, lines[2], "50.00")
}

func TestWeekComment(t *testing.T) {
	a, engine := newTestApp(t)

	_, err := execute(t, a, "week", "comment", "2025", "5", "2", "rainy", "week")
	require.NoError(t, err)
	got := engine.GetStore(context.Background())[2025][5].Weeks[2]
	assert.Equal(t, "rainy week", got.Performance.Comment)
}

func TestExpensesSet(t *testing.T) {
	a, engine := newTestApp(t)

	_, err := execute(t, a, "expenses", "set", "2025", "5", "--rent", "500", "--svs", "200")
	require.NoError(t, err)
	_, err = execute(t, a, "expenses", "set", "2025", "5", "--phone", "20")
	require.NoError(t, err)

	got := engine.GetStore(context.Background())[2025][5].MonthlyExpenses
	assert.Equal(t, core.MonthlyExpenses{Rent: 500, Phone: 20, SVS: 200}, got)
}

func TestReportAndExport(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := execute(t, a, "day", "set", "2025", "0", "5", "--revenue", "40", "--tips", "10")
	require.NoError(t, err)

	out, err := execute(t, a, "report", "2025")
	require.NoError(t, err)
	assert.Contains(t, out, "jan")
	assert.Contains(t, out, "Total")
	assert.Contains(t, out, "50.00")

	path := filepath.Join(t.TempDir(), "2025.xlsx")
	out, err = execute(t, a, "-o", "json", "export", "2025", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"year": 2025`)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestInvalidInvocations(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"month out of range", []string{"summary", "2025", "12"}, "invalid month"},
		{"day past month end", []string{"day", "set", "2025", "1", "30", "--revenue", "1"}, "invalid day"},
		{"non-numeric year", []string{"summary", "x", "1"}, `invalid year "x"`},
		{"unknown format", []string{"-o", "xml", "summary", "2025", "1"}, "invalid output format"},
		{"no fields", []string{"day", "set", "2025", "5", "3"}, "nothing to set"},
		{"week slot out of range", []string{"week", "comment", "2025", "5", "7", "x"}, "invalid week"},
		{"year zero", []string{"report", "0"}, "invalid year"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, engine := newTestApp(t)
			_, err := execute(t, a, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Empty(t, engine.GetStore(context.Background()))
		})
	}
}

func TestDaySetParsesAmountsLeniently(t *testing.T) {
	a, engine := newTestApp(t)

	_, err := execute(t, a, "day", "set", "2025", "5", "3", "--revenue", "12,5", "--tips", "abc", "--food", " 3.25 ")
	require.NoError(t, err)

	got := engine.GetStore(context.Background())[2025][5].Days[3]
	assert.Equal(t, 12.5, got.Performance.Revenue)
	assert.Equal(t, 0.0, got.Performance.Tips)
	assert.Equal(t, 3.25, got.Expenses.Food)
}

type storedSummaries map[int]core.MonthSummary

func (s storedSummaries) SaveSnapshot(_ context.Context, _ int, month int, sum core.MonthSummary) error {
	s[month] = sum
	return nil
}

func (s storedSummaries) Snapshots(_ context.Context, _ int) (map[int]core.MonthSummary, error) {
	return s, nil
}

func TestReportCachedReadsStoredSummaries(t *testing.T) {
	a, _ := newTestApp(t)
	a.snapshots = storedSummaries{5: {Gross: 1260, Tax: 12.5}}

	out, err := execute(t, a, "-o", "json", "report", "2025", "--cached")
	require.NoError(t, err)
	var rep tracker.YearReport
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	require.Len(t, rep.Months, 12)
	assert.Equal(t, 1260.0, rep.Months[5].Summary.Gross)
	assert.Equal(t, "jun", rep.Months[5].Label)
	assert.Equal(t, 1260.0, rep.Totals.Gross)
	assert.Equal(t, 12.5, rep.Totals.Tax)

	live, err := execute(t, a, "-o", "json", "report", "2025")
	require.NoError(t, err)
	assert.Contains(t, live, `"gross": 0`, "without --cached the report is recomputed from the store")
}

func TestReportCachedNeedsSnapshots(t *testing.T) {
	a, _ := newTestApp(t)
	_, err := execute(t, a, "report", "2025", "--cached")
	assert.ErrorIs(t, err, ErrNoSnapshots)
}
