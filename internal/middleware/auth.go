package middleware

import (
	"net/http"
	"strings"

	"github.com/calebmorris/wellbeat/internal/session"
)

// RequireUser resolves the bearer token through the session provider and
// populates the request context with the user id. Requests without a valid
// token get 401.
func RequireUser(provider session.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			userID, ok := provider.Resolve(token)
			if !ok {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			ctx := session.WithUser(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	// WebSocket clients cannot set headers from the browser API.
	return r.URL.Query().Get("token")
}
