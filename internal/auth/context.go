package auth

import (
	"context"
	"net/http"
	"strings"

	"quiz-assessment-service/internal/domain"
)

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying the identity.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the identity carried by ctx, or the anonymous identity.
func IdentityFrom(ctx context.Context) domain.Identity {
	id, _ := ctx.Value(identityKey{}).(domain.Identity)
	return id
}

// FromRequest reads the caller from the X-User-ID / X-User-Email headers set by
// the fronting gateway, falling back to the userId query parameter.
func FromRequest(r *http.Request) domain.Identity {
	id := domain.Identity{
		UserID: strings.TrimSpace(r.Header.Get("X-User-ID")),
		Email:  strings.TrimSpace(r.Header.Get("X-User-Email")),
	}
	if id.UserID == "" {
		id.UserID = strings.TrimSpace(r.URL.Query().Get("userId"))
	}
	return id
}

// Middleware attaches the request identity to the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), FromRequest(r))))
	})
}
