// Package identity resolves the authenticated user of a request.
package identity

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/celiscope/celiscope/internal/domain"
)

type contextKey int

const userKey contextKey = iota

// TokenParser validates an access token.
type TokenParser interface {
	ParseAccess(token string) (*domain.Profile, error)
}

// WithUser returns a copy of ctx carrying the user.
func WithUser(ctx context.Context, p *domain.Profile) context.Context {
	return context.WithValue(ctx, userKey, p)
}

// UserFromContext extracts the authenticated user, or nil.
func UserFromContext(ctx context.Context) *domain.Profile {
	if v, ok := ctx.Value(userKey).(*domain.Profile); ok {
		return v
	}
	return nil
}

// UserIDFromContext extracts the user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if p := UserFromContext(ctx); p != nil {
		return p.ID
	}
	return ""
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Middleware puts the user of a valid bearer token into the request
// context. Requests without a valid token pass through anonymously.
func Middleware(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := BearerToken(r); token != "" {
				if p, err := tokens.ParseAccess(token); err == nil {
					r = r.WithContext(WithUser(r.Context(), p))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Required rejects requests that carry no authenticated user.
func Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Unauthorized","status":401}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IPFromRequest returns a normalized remote IP for rate limiting.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
