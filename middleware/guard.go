// Package middleware bridges the authcore engine to net/http: a Guard
// that authenticates bearer tokens and attaches the resolved
// RequestIdentity to the request context, and a RequireRole gate for
// role-restricted routes.
package middleware

import (
	"context"
	"net/http"

	"github.com/hermesgsc/authcore"
)

type requestIdentityContextKey struct{}

// IdentityFromContext returns the RequestIdentity attached by Guard.
func IdentityFromContext(ctx context.Context) (*authcore.RequestIdentity, bool) {
	ident, ok := ctx.Value(requestIdentityContextKey{}).(*authcore.RequestIdentity)
	return ident, ok
}

// WithIdentity attaches a RequestIdentity to ctx. Exposed for handler
// tests; Guard is the production path.
func WithIdentity(ctx context.Context, ident *authcore.RequestIdentity) context.Context {
	return context.WithValue(ctx, requestIdentityContextKey{}, ident)
}

// Guard authenticates the Authorization header and threads the resolved
// identity into the request context. Missing header, wrong scheme, and
// verification failures are indistinguishable to the client.
func Guard(engine *authcore.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ident, err := engine.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
		})
	}
}

// RequireRole rejects requests whose context identity does not hold role.
// It must be mounted inside Guard; a missing identity reads as
// unauthenticated, not forbidden.
func RequireRole(role authcore.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := IdentityFromContext(r.Context())
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			if ident.Role != role {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin is shorthand for RequireRole(authcore.RoleAdmin).
func RequireAdmin() func(http.Handler) http.Handler {
	return RequireRole(authcore.RoleAdmin)
}
