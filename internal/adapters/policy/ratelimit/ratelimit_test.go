package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew_Disabled(t *testing.T) {
	l := New(0, 5, 0)
	if l != nil {
		t.Fatal("expected nil limiter for zero rate")
	}
	if !l.Allow("k", time.Now()) {
		t.Error("nil limiter must allow")
	}
}

func TestNew_DefaultBurst(t *testing.T) {
	if got := New(2.5, 0, 0).Burst(); got != 3 {
		t.Errorf("Burst() = %d, want 3", got)
	}
}

func TestLimiter_Allow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 2, time.Minute)

	if !l.Allow("a", now) || !l.Allow("a", now) {
		t.Fatal("burst of 2 should be allowed")
	}
	if l.Allow("a", now) {
		t.Error("third request in the same instant should be denied")
	}
	if !l.Allow("b", now) {
		t.Error("keys must be independent")
	}
	if !l.Allow("  ", now) {
		t.Error("blank keys are not limited")
	}
	if !l.Allow("a", now.Add(time.Second)) {
		t.Error("bucket should refill after one second")
	}
}

func TestLimiter_Evict(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 1, time.Minute)
	l.Allow("old", now)
	l.Allow("new", now.Add(2*time.Minute))

	l.Evict(now.Add(2 * time.Minute))
	if l.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after eviction", l.Len())
	}
}

func TestMiddleware(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 1, 0)
	h := Middleware(l, nil, func() time.Time { return now })(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(token string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/dispatch", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("k1"); code != http.StatusNoContent {
		t.Fatalf("first request = %d", code)
	}
	if code := send("k1"); code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", code)
	}
	if code := send("k2"); code != http.StatusNoContent {
		t.Errorf("other key = %d, want 204", code)
	}
	if code := send(""); code != http.StatusNoContent {
		t.Errorf("anonymous by ip = %d, want 204", code)
	}
	if code := send(""); code != http.StatusTooManyRequests {
		t.Errorf("anonymous repeat = %d, want 429", code)
	}
}

func TestMiddleware_NilLimiter(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := Middleware(nil, nil, nil)(next)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}
