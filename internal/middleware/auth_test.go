package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/calebmorris/wellbeat/internal/session"
)

func authedHandler(t *testing.T, wantUser string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := session.UserID(r.Context())
		if !ok {
			t.Error("no user on context")
		}
		if userID != wantUser {
			t.Errorf("user = %q, want %q", userID, wantUser)
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireUserValidToken(t *testing.T) {
	provider := session.StaticProvider{"tok-123": "alice"}
	h := RequireUser(provider)(authedHandler(t, "alice"))

	req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
	req.Header.Set("Authorization", "Bearer tok-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestRequireUserQueryToken(t *testing.T) {
	provider := session.StaticProvider{"tok-123": "alice"}
	h := RequireUser(provider)(authedHandler(t, "alice"))

	req := httptest.NewRequest(http.MethodGet, "/api/ws?token=tok-123", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rec.Code)
	}
}

func TestRequireUserRejections(t *testing.T) {
	provider := session.StaticProvider{"tok-123": "alice"}
	h := RequireUser(provider)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler reached without valid token")
	}))

	cases := []struct {
		name  string
		setup func(*http.Request)
	}{
		{"no token", func(*http.Request) {}},
		{"wrong token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }},
		{"wrong scheme", func(r *http.Request) { r.Header.Set("Authorization", "Basic tok-123") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/notifications", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}
