// Package session resolves the authenticated user for a request. The real
// identity provider lives outside this service; this package only carries
// its result through the request context.
package session

import "context"

type contextKey struct{}

// WithUser returns a context carrying the authenticated user id.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// UserID returns the authenticated user id, if any.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Provider resolves a bearer token to a user id.
type Provider interface {
	Resolve(token string) (userID string, ok bool)
}

// StaticProvider maps fixed tokens to user ids. It stands in for the
// external identity provider in development and tests.
type StaticProvider map[string]string

func (p StaticProvider) Resolve(token string) (string, bool) {
	id, ok := p[token]
	return id, ok
}
