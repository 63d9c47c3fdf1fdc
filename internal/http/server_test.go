package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"drivertrack/internal/core"
	"drivertrack/internal/export"
	"drivertrack/internal/kv/memory"
	"drivertrack/internal/log"
	"drivertrack/internal/services"
	"drivertrack/internal/tracker"
)

var june17 = time.Date(2025, 6, 17, 9, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, opts Options) (*Server, *memory.Store) {
	t.Helper()
	mem := memory.New()
	engine := tracker.New(mem,
		tracker.WithLogger(log.Discard()),
		tracker.WithClock(func() time.Time { return june17 }))
	svc := services.NewTrackerService(engine, services.WithLogger(log.Discard()))
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	srv := NewServer(":0", svc, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, mem
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz"} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}

	srv, _ = newTestServer(t, Options{Pinger: failingPinger{}})
	if rr := do(t, srv, http.MethodGet, "/readyz", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz with failing store = %d", rr.Code)
	}
}

func TestCalendarEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/api/calendar/2025/5", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	cal := decode[calendarResponse](t, rr)
	if cal.DaysInMonth != 30 || len(cal.Weeks) != 6 || cal.CurrentWeekIndex != 4 {
		t.Fatalf("unexpected calendar: %+v", cal)
	}
	if cal.Weeks[1].Label != "2-8 jun" {
		t.Fatalf("week 2 label = %q", cal.Weeks[1].Label)
	}

	rr = do(t, srv, http.MethodGet, "/api/calendar/2025/5/days/17", "")
	if got := decode[map[string]any](t, rr); got["name"] != "Tue" {
		t.Fatalf("day name = %v", got)
	}

	for _, path := range []string{
		"/api/calendar/2025/12",
		"/api/calendar/x/1",
		"/api/calendar/2025/5/days/31",
	} {
		if rr := do(t, srv, http.MethodGet, path, ""); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestSetDayAndSummary(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPatch, "/api/months/2025/5/days/3",
		`{"performance":{"hoursWorked":20,"revenue":"1200","tips":60,"ordersDelivered":40},"expenses":{"food":100,"transport":80}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("patch status=%d body=%s", rr.Code, rr.Body.String())
	}
	rec := decode[core.DayRecord](t, rr)
	if rec.Performance.Revenue != 1200 || rec.Expenses.Food != 100 {
		t.Fatalf("unexpected record: %+v", rec)
	}

	rr = do(t, srv, http.MethodPatch, "/api/months/2025/5/expenses", `{"rent":500,"svs":200}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expenses status=%d", rr.Code)
	}

	sum := decode[core.MonthSummary](t, do(t, srv, http.MethodGet, "/api/months/2025/5/summary", ""))
	if sum.Gross != 1260 || sum.WeeklyExpensesTotal != 180 || sum.MonthlyExpensesTotal != 700 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	doc := decode[core.MonthDocument](t, do(t, srv, http.MethodGet, "/api/months/2025/5", ""))
	if len(doc.Weeks) != core.WeekSlots || doc.Days[3].Performance.Tips != 60 {
		t.Fatalf("unexpected month: %+v", doc)
	}
}

func TestWeekEndpoints(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	if rr := do(t, srv, http.MethodPatch, "/api/months/2025/5/days/1", `{"performance":{"revenue":10}}`); rr.Code != http.StatusOK {
		t.Fatalf("patch day = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPatch, "/api/months/2025/5/weeks/1", `{"performance":{"comment":"short week"}}`); rr.Code != http.StatusOK {
		t.Fatalf("patch week = %d", rr.Code)
	}

	view := decode[tracker.WeekView](t, do(t, srv, http.MethodGet, "/api/months/2025/5/weeks/1", ""))
	if view.Range.Label != "1-1 jun" || view.Week.Performance.Revenue != 10 || view.Week.Performance.Comment != "short week" {
		t.Fatalf("unexpected view: %+v", view)
	}

	// Out-of-range index falls back to the first range.
	view = decode[tracker.WeekView](t, do(t, srv, http.MethodGet, "/api/months/2025/5/weeks/9", ""))
	if view.Range.Start != 1 || view.Range.End != 1 {
		t.Fatalf("fallback range = %+v", view.Range)
	}

	if rr := do(t, srv, http.MethodPatch, "/api/months/2025/5/weeks/7", `{}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("week slot 7 = %d", rr.Code)
	}
}

func TestWriteValidation(t *testing.T) {
	srv, mem := newTestServer(t, Options{})
	tests := []struct {
		path string
		body string
	}{
		{"/api/months/2025/12/days/1", `{}`},
		{"/api/months/2025/1/days/29", `{}`},
		{"/api/months/2025/1/days/zero", `{}`},
		{"/api/months/2025/1/days/2", `{"performance":`},
		{"/api/months/0/1/expenses", `{}`},
	}
	for _, tt := range tests {
		if rr := do(t, srv, http.MethodPatch, tt.path, tt.body); rr.Code != http.StatusBadRequest {
			t.Fatalf("%s status=%d", tt.path, rr.Code)
		}
	}
	if _, ok := mem.Raw(tracker.DefaultKey); ok {
		t.Fatal("rejected writes must not touch the store")
	}
}

func TestPersistFailureReturns503WithRecord(t *testing.T) {
	srv, mem := newTestServer(t, Options{})
	mem.FailWrites = errors.New("disk full")

	rr := do(t, srv, http.MethodPatch, "/api/months/2025/5/days/2", `{"performance":{"revenue":30}}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", rr.Code)
	}
	var body struct {
		Error  string         `json:"error"`
		Record core.DayRecord `json:"record"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Record.Performance.Revenue != 30 || body.Error == "" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestYearReportCacheInvalidation(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	rep := decode[tracker.YearReport](t, do(t, srv, http.MethodGet, "/api/years/2025/report", ""))
	if len(rep.Months) != 12 || rep.Totals.Gross != 0 {
		t.Fatalf("unexpected empty report: %+v", rep.Totals)
	}
	if _, ok := srv.reports.Get(2025); !ok {
		t.Fatal("report should be cached")
	}

	do(t, srv, http.MethodPatch, "/api/months/2025/0/days/5", `{"performance":{"revenue":40,"tips":10}}`)
	if _, ok := srv.reports.Get(2025); ok {
		t.Fatal("write must evict the cached report")
	}

	rep = decode[tracker.YearReport](t, do(t, srv, http.MethodGet, "/api/years/2025/report", ""))
	if rep.Totals.Gross != 50 || rep.Months[0].Label != "jan" {
		t.Fatalf("unexpected report: %+v", rep.Totals)
	}

	if rr := do(t, srv, http.MethodGet, "/api/years/0/report", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("year 0 = %d", rr.Code)
	}
}

func TestYearReportXLSX(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	do(t, srv, http.MethodPatch, "/api/months/2025/0/days/5", `{"performance":{"revenue":40}}`)

	rr := do(t, srv, http.MethodGet, "/api/years/2025/report.xlsx", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != export.ContentType {
		t.Fatalf("content type = %q", ct)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rr.Body.Bytes()))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue(export.SheetName(2025), "B2"); v != "40" {
		t.Fatalf("January gross = %q", v)
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	srv, _ := newTestServer(t, Options{RateLimitPerMinute: 1})

	if rr := do(t, srv, http.MethodPatch, "/api/months/2025/5/expenses", `{}`); rr.Code != http.StatusOK {
		t.Fatalf("first write = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPatch, "/api/months/2025/5/expenses", `{}`); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second write = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, "/api/store", ""); rr.Code != http.StatusOK {
		t.Fatalf("reads are not limited, got %d", rr.Code)
	}
}

func TestMetricsAndHeaders(t *testing.T) {
	srv, _ := newTestServer(t, Options{})
	do(t, srv, http.MethodPatch, "/api/months/2025/5/days/1", `{}`)
	do(t, srv, http.MethodPatch, "/api/months/2025/13/days/1", `{}`)

	rr := do(t, srv, http.MethodGet, "/metrics", "")
	body := rr.Body.String()
	for _, want := range []string{
		`drivertrack_store_writes_total{kind="day",result="ok"} 1`,
		`drivertrack_store_writes_total{kind="day",result="invalid"} 1`,
		`drivertrack_http_requests_total{code="200",method="PATCH",route="/api/months/{year}/{month}/days/{day}"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q", want)
		}
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" || rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing middleware headers: %v", rr.Header())
	}

	if rr := do(t, srv, http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("unknown route = %d", rr.Code)
	}
	if rr := do(t, srv, http.MethodDelete, "/api/store", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE store = %d", rr.Code)
	}
}

func TestReportComputedAcrossWriteIsNotCached(t *testing.T) {
	srv, _ := newTestServer(t, Options{})

	gen := srv.reportGeneration(2025)
	stale := srv.engine.YearReport(context.Background(), 2025)
	do(t, srv, http.MethodPatch, "/api/months/2025/0/days/5", `{"performance":{"revenue":40}}`)

	if srv.cacheReport(2025, gen, stale) {
		t.Fatal("report computed before the write must not be cached")
	}
	if _, ok := srv.reports.Get(2025); ok {
		t.Fatal("stale report is in the cache")
	}

	rep := decode[tracker.YearReport](t, do(t, srv, http.MethodGet, "/api/years/2025/report", ""))
	if rep.Totals.Gross != 40 {
		t.Fatalf("gross = %v, want 40", rep.Totals.Gross)
	}
	if cached, ok := srv.reports.Get(2025); !ok || cached.Totals.Gross != 40 {
		t.Fatal("fresh report should be cached")
	}
	if !srv.cacheReport(2026, srv.reportGeneration(2026), stale) {
		t.Fatal("untouched year must cache")
	}
}
