package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestAllow_WindowResets(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := New(3, time.Minute).WithClock(c.now)

	for i := 0; i < 3; i++ {
		if ok, _ := l.Allow("u1"); !ok {
			t.Fatalf("attempt %d refused", i+1)
		}
	}
	ok, wait := l.Allow("u1")
	if ok {
		t.Fatal("fourth attempt allowed")
	}
	if wait != time.Minute {
		t.Errorf("retryAfter = %s, want 1m", wait)
	}
	if got := l.Remaining("u1"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}

	// Other keys are independent.
	if ok, _ := l.Allow("u2"); !ok {
		t.Error("u2 refused")
	}

	c.advance(time.Minute)
	if ok, _ := l.Allow("u1"); !ok {
		t.Error("attempt after window refused")
	}
	if got := l.Remaining("u1"); got != 2 {
		t.Errorf("Remaining = %d, want 2", got)
	}
}

func TestAllow_ZeroLimitDisables(t *testing.T) {
	l := New(0, time.Minute)
	for i := 0; i < 100; i++ {
		if ok, _ := l.Allow("u1"); !ok {
			t.Fatalf("attempt %d refused", i+1)
		}
	}
}

func TestReset(t *testing.T) {
	l := New(1, time.Hour)
	l.Allow("u1")
	if ok, _ := l.Allow("u1"); ok {
		t.Fatal("second attempt allowed")
	}
	l.Reset("u1")
	if ok, _ := l.Allow("u1"); !ok {
		t.Error("attempt after Reset refused")
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l := New(10, time.Hour)
	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("shared"); ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := allowed.Load(); got != 10 {
		t.Errorf("allowed = %d, want 10", got)
	}
}

func TestMiddleware(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := New(1, 30*time.Second).WithClock(c.now)
	h := l.Middleware(func(r *http.Request) string { return r.Header.Get("X-Caller") })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	do := func(caller string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/join", nil)
		if caller != "" {
			req.Header.Set("X-Caller", caller)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("u1"); rec.Code != http.StatusNoContent {
		t.Fatalf("first status = %d", rec.Code)
	}
	rec := do("u1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "30" {
		t.Errorf("Retry-After = %q, want 30", got)
	}

	// No key, no counting.
	for i := 0; i < 3; i++ {
		if rec := do(""); rec.Code != http.StatusNoContent {
			t.Fatalf("anonymous status = %d", rec.Code)
		}
	}
}

func TestMiddleware_NilLimiter(t *testing.T) {
	var l *Limiter
	h := l.Middleware(func(*http.Request) string { return "u1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/join", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rec.Code)
		}
	}
}
