package rbac

import (
	"context"
	"time"
)

// Permission represents an atomic capability, named "<resource>.<action>".
// Permissions are created by the seeder or an rbac.manage operation and are
// never mutated or deleted afterwards.
type Permission struct {
	ID          int64
	Name        string
	Description string
	Resource    string
	Action      string
	CreatedAt   time.Time
}

// Role represents a named, prioritized bundle of permissions. Priority is an
// informational ranking; the evaluator does not special-case it.
type Role struct {
	ID          int64
	Name        string
	Description string
	Priority    int
	CreatedAt   time.Time
}

// Principal describes the authenticated actor as resolved by the credential
// layer. Roles holds the names of every role assigned to the account.
type Principal struct {
	ID       int64
	Username string
	Active   bool
	Roles    []string
}

// HasRole reports whether the principal holds a role with the given name.
func (p *Principal) HasRole(name string) bool {
	if p == nil {
		return false
	}
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context, nil when absent.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
