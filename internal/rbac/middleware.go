package rbac

import (
	"log/slog"
	"net/http"

	"github.com/helix-hms/helix-hms/internal/platform/httpx"
)

// DenialObserver counts authorization denials by reason.
type DenialObserver interface {
	ObserveDenial(reason string)
}

// Middleware wires authorization checks in front of HTTP handlers. The
// principal is resolved by the auth middleware further up the chain; this one
// performs the Tier 1 coarse-grained check only. Record-level policy runs
// inside the services once the instance is loaded.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
	Metrics   DenialObserver
}

// Require ensures the current principal holds the named permission.
func (m Middleware) Require(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := PrincipalFromContext(r.Context())
			decision, err := m.Evaluator.CheckPermission(r.Context(), p, permission)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("permission check", slog.String("permission", permission), slog.Any("error", err))
				}
				httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
				return
			}
			if !decision.Allowed {
				m.deny(w, r, permission, decision)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated only demands a resolved, active principal.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := PrincipalFromContext(r.Context())
		if p == nil {
			m.deny(w, r, "", Deny("unauthenticated"))
			return
		}
		if !p.Active {
			m.deny(w, r, "", Deny("account_disabled"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, permission string, decision Decision) {
	if m.Metrics != nil {
		m.Metrics.ObserveDenial(decision.Reason)
	}
	if m.Logger != nil {
		m.Logger.Warn("authorization denied",
			slog.String("path", r.URL.Path),
			slog.String("permission", permission),
			slog.String("reason", decision.Reason),
		)
	}
	httpx.RespondError(w, decision.Err())
}
