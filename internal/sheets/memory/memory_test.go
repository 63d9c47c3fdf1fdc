package memory

import (
	"context"
	"testing"

	"drivertrack/internal/core"
)

func TestWriteAndReadMonth(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, ok, _ := s.ReadMonth(ctx, 2025, 5); ok {
		t.Fatalf("expected no row before the first write")
	}

	ref, err := s.WriteMonth(ctx, 2025, 5, "jun", core.MonthSummary{Gross: 100})
	if err != nil || ref != "mem:2025:7" {
		t.Fatalf("unexpected write: ref=%q err=%v", ref, err)
	}
	if _, err := s.WriteMonth(ctx, 2025, 5, "jun", core.MonthSummary{Gross: 150}); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	got, ok, err := s.ReadMonth(ctx, 2025, 5)
	if err != nil || !ok || got.Gross != 150 {
		t.Fatalf("read = %+v %v %v", got, ok, err)
	}
	if s.Label(2025, 5) != "jun" || s.Writes() != 2 {
		t.Fatalf("label=%q writes=%d", s.Label(2025, 5), s.Writes())
	}
}

func TestWriteMonthRejectsInvalidMonth(t *testing.T) {
	if _, err := New().WriteMonth(context.Background(), 2025, 12, "x", core.MonthSummary{}); err == nil {
		t.Fatalf("expected error for month 12")
	}
}
