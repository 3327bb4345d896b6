package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calebmorris/wellbeat/internal/session"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		if !rl.Allow("alice", 3, time.Minute) {
			t.Fatalf("request %d denied under the limit", i+1)
		}
	}
	if rl.Allow("alice", 3, time.Minute) {
		t.Error("request over the limit allowed")
	}
	// Other keys have their own budget.
	if !rl.Allow("bob", 3, time.Minute) {
		t.Error("unrelated key denied")
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter()

	if !rl.Allow("alice", 1, 10*time.Millisecond) {
		t.Fatal("first request denied")
	}
	if rl.Allow("alice", 1, 10*time.Millisecond) {
		t.Fatal("second request in window allowed")
	}
	time.Sleep(15 * time.Millisecond)
	if !rl.Allow("alice", 1, 10*time.Millisecond) {
		t.Error("request after window expired denied")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	h := RateLimit(rl, RealIP, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/reconcile", nil)
	req.RemoteAddr = "10.0.0.1:5000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}

func TestUserKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/reconcile", nil)
	r.RemoteAddr = "10.0.0.1:5000"
	if got := UserKey(r); got != "ip:10.0.0.1" {
		t.Errorf("anonymous key = %q, want ip:10.0.0.1", got)
	}

	r = r.WithContext(session.WithUser(r.Context(), "user-1"))
	if got := UserKey(r); got != "user:user-1" {
		t.Errorf("authenticated key = %q, want user:user-1", got)
	}
}

// Two users behind the same proxy address must not share a budget.
func TestRateLimitKeysByUser(t *testing.T) {
	rl := NewRateLimiter()
	h := RateLimit(rl, UserKey, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(userID string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/reconcile", nil)
		req.RemoteAddr = "10.0.0.1:5000"
		req = req.WithContext(session.WithUser(req.Context(), userID))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send("user-1"); code != http.StatusOK {
		t.Fatalf("first request status = %d", code)
	}
	if code := send("user-1"); code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", code)
	}
	if code := send("user-2"); code != http.StatusOK {
		t.Errorf("other user status = %d, want 200", code)
	}
}

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.7:1234"
	if got := RealIP(r); got != "192.0.2.7" {
		t.Errorf("RealIP = %q, want 192.0.2.7", got)
	}

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 192.0.2.7")
	if got := RealIP(r); got != "203.0.113.9" {
		t.Errorf("RealIP = %q, want 203.0.113.9", got)
	}
}
