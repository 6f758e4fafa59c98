// Package session exposes the purchaser identity asserted by the upstream
// identity provider. Requests without an identity are guests.
package session

import (
	"context"
	"net/http"
	"strings"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

type Identity struct {
	UserID string
	Email  string
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the authenticated identity, or false for guests.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, false
	}
	return id, true
}

// Middleware reads the identity headers set by the identity provider's proxy.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := WithIdentity(r.Context(), Identity{
			UserID: userID,
			Email:  strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
