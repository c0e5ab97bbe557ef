package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/helix-hms/helix-hms/internal/rbac"
)

// Middleware resolves the bearer token into a principal and stores it in the
// request context. It never denies by itself: requests without a valid
// principal continue unauthenticated and the rbac middleware rejects them at
// the route group that requires authority.
type Middleware struct {
	Service *Service
	Tokens  *TokenManager
	Logger  *slog.Logger
}

// ResolvePrincipal is the http middleware entry point.
func (m Middleware) ResolvePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := bearerToken(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := m.Tokens.Parse(raw)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := m.Service.ResolvePrincipal(r.Context(), claims)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("resolve principal", slog.String("username", claims.Username), slog.Any("error", err))
			}
			next.ServeHTTP(w, r)
			return
		}
		ctx := rbac.ContextWithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
