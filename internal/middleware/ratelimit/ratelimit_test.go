package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newLimiter(t *testing.T, perMinute int) (*Limiter, *clock) {
	t.Helper()
	clk := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, Now: clk.now})
	t.Cleanup(rl.Stop)
	return rl, clk
}

func TestAllowFixedWindow(t *testing.T) {
	rl, clk := newLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("a") {
			t.Fatalf("request %d refused", i+1)
		}
	}
	if rl.Allow("a") {
		t.Fatal("4th request in the window must be refused")
	}
	if !rl.Allow("b") {
		t.Fatal("other clients are independent")
	}

	// Steady traffic must not extend the window.
	clk.t = clk.t.Add(59 * time.Second)
	if rl.Allow("a") {
		t.Fatal("still inside the window")
	}
	if got := rl.RetryAfter("a"); got != time.Second {
		t.Fatalf("RetryAfter = %v", got)
	}
	clk.t = clk.t.Add(time.Second)
	if !rl.Allow("a") {
		t.Fatal("new window must allow")
	}
	if rl.Rejected() != 2 {
		t.Fatalf("rejected = %d", rl.Rejected())
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, clk := newLimiter(t, 5)
	rl.Allow("a")
	clk.t = clk.t.Add(5 * time.Minute)
	rl.Allow("b")
	clk.t = clk.t.Add(6 * time.Minute)

	if n := rl.cleanupStaleEntries(); n != 1 {
		t.Fatalf("removed %d, want 1", n)
	}
	if rl.ActiveClients() != 1 {
		t.Fatalf("active = %d", rl.ActiveClients())
	}
}

func TestMiddlewareLimitsOnlyListedMethods(t *testing.T) {
	rl, _ := newLimiter(t, 1)
	ip := func(*http.Request) string { return "c" }
	h := rl.Middleware(ip, nil, http.MethodPatch)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/", nil))
		return rr
	}

	if rr := do(http.MethodPatch); rr.Code != http.StatusOK {
		t.Fatalf("first PATCH = %d", rr.Code)
	}
	rr := do(http.MethodPatch)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second PATCH = %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Fatalf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
	for i := 0; i < 3; i++ {
		if rr := do(http.MethodGet); rr.Code != http.StatusOK {
			t.Fatalf("GET must not be limited, got %d", rr.Code)
		}
	}
}

func TestMiddlewareCustomRefusal(t *testing.T) {
	rl, _ := newLimiter(t, 1)
	called := false
	onLimit := func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusTooManyRequests)
	}
	h := rl.Middleware(func(*http.Request) string { return "c" }, onLimit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("onLimit not called")
	}
}

func TestNewLimiterDefaults(t *testing.T) {
	rl := NewLimiter(Config{})
	defer rl.Stop()
	if rl.requestsPerMinute != DefaultConfig().RequestsPerMinute {
		t.Fatalf("requestsPerMinute = %d", rl.requestsPerMinute)
	}
	rl.Stop()
}
