package rbac

import (
	"context"

	"github.com/helix-hms/helix-hms/internal/shared"
)

// PermissionSource resolves the effective permission names of a user. Both
// the Repository and the Cache satisfy it.
type PermissionSource interface {
	UserPermissionNames(ctx context.Context, userID int64) ([]string, error)
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Allow is the positive decision.
var Allow = Decision{Allowed: true}

// Deny constructs a denial carrying a machine-readable reason.
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial into its typed error; nil when allowed. Callers must
// branch on the decision before touching business data.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case "unauthenticated":
		return shared.ErrUnauthenticated
	case "account_disabled":
		return shared.ErrAccountDisabled
	case shared.ReasonSelfDelete:
		return shared.InvalidOperation(d.Reason)
	default:
		return shared.Forbidden(d.Reason)
	}
}

// MedicalRecordRef carries the instance fields record-level policy needs.
type MedicalRecordRef struct {
	DoctorID     int64
	Confidential bool
}

// Scope shapes a medical record listing query. A nil DoctorID means no
// restriction.
type Scope struct {
	DoctorID *int64
}

// Evaluator answers "can principal P perform action A on resource R" in two
// tiers: coarse-grained permission membership, then record-level policy for
// resources with instance-specific rules. It is stateless and side-effect-free
// per call; shared state lives entirely in the backing store.
type Evaluator struct {
	perms PermissionSource
}

// NewEvaluator constructs an Evaluator over the given permission source.
func NewEvaluator(perms PermissionSource) *Evaluator {
	return &Evaluator{perms: perms}
}

// CheckPermission performs the Tier 1 coarse-grained check. The error return
// is reserved for store failures; denials come back in the Decision.
func (e *Evaluator) CheckPermission(ctx context.Context, p *Principal, permission string) (Decision, error) {
	if p == nil {
		return Deny("unauthenticated"), nil
	}
	if !p.Active {
		return Deny("account_disabled"), nil
	}
	names, err := e.perms.UserPermissionNames(ctx, p.ID)
	if err != nil {
		return Decision{}, err
	}
	for _, name := range names {
		if name == permission {
			return Allow, nil
		}
	}
	return Deny(shared.ReasonMissingPermission), nil
}

// CanReadMedicalRecord applies the confidentiality policy: confidential
// records are visible only to Administrators and the owning doctor.
func (e *Evaluator) CanReadMedicalRecord(p *Principal, rec MedicalRecordRef) Decision {
	if !rec.Confidential {
		return Allow
	}
	if p.HasRole(shared.RoleAdministrator) || (p != nil && p.ID == rec.DoctorID) {
		return Allow
	}
	return Deny(shared.ReasonConfidentialAccess)
}

// CanUpdateMedicalRecord allows Administrators and the owning doctor.
func (e *Evaluator) CanUpdateMedicalRecord(p *Principal, rec MedicalRecordRef) Decision {
	if p.HasRole(shared.RoleAdministrator) || (p != nil && p.ID == rec.DoctorID) {
		return Allow
	}
	return Deny(shared.ReasonNotOwner)
}

// CanDeleteMedicalRecord allows Administrators only, regardless of ownership.
func (e *Evaluator) CanDeleteMedicalRecord(p *Principal) Decision {
	if p.HasRole(shared.RoleAdministrator) {
		return Allow
	}
	return Deny(shared.ReasonAdminOnly)
}

// MedicalRecordScope returns the query-shaping predicate for listings: a
// Doctor without the Administrator role who supplied no explicit doctor
// filter sees only records they own. An explicit filter is honored as-is.
func (e *Evaluator) MedicalRecordScope(p *Principal, explicitDoctorID *int64) Scope {
	if explicitDoctorID != nil {
		return Scope{DoctorID: explicitDoctorID}
	}
	if p != nil && !p.HasRole(shared.RoleAdministrator) && p.HasRole(shared.RoleDoctor) {
		own := p.ID
		return Scope{DoctorID: &own}
	}
	return Scope{}
}

// CanDeleteUser rejects self-deletion even when the actor holds users.delete.
func (e *Evaluator) CanDeleteUser(p *Principal, targetID int64) Decision {
	if p != nil && p.ID == targetID {
		return Deny(shared.ReasonSelfDelete)
	}
	return Allow
}
