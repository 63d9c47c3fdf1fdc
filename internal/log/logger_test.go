package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentTracker, Output: &buf})

	l.Info("saved", FieldYear, 2025)
	out := buf.String()
	if !strings.Contains(out, "component=tracker") || !strings.Contains(out, "year=2025") {
		t.Fatalf("unexpected output: %s", out)
	}

	buf.Reset()
	l.WithComponent(ComponentHTTP).Warn("slow")
	out = buf.String()
	if !strings.Contains(out, "component=http") || strings.Contains(out, "component=tracker") {
		t.Fatalf("component not replaced: %s", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestContextRoundTrip(t *testing.T) {
	l := Discard().WithComponent(ComponentWorker)
	ctx := NewContext(context.Background(), l)
	if got := FromContext(ctx); got != l {
		t.Fatalf("logger not returned from context")
	}
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("fallback component = %q", got.Component())
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().WithMonth(2025, 5).WithOperation(OpSetDay).WithError(errors.New("boom")).WithError(nil)
	if f[FieldYear] != 2025 || f[FieldMonth] != 5 || f[FieldOperation] != OpSetDay || f[FieldError] != "boom" {
		t.Fatalf("unexpected fields: %v", f)
	}
	if n := len(f.ToSlice()); n != 8 {
		t.Fatalf("expected 8 slice entries, got %d", n)
	}
}
