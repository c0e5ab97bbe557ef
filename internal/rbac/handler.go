package rbac

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helix-hms/helix-hms/internal/platform/httpx"
	"github.com/helix-hms/helix-hms/internal/shared"
)

// Handler exposes role and permission management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        Middleware
	audit     *shared.AuditLogger
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw Middleware, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		audit:     audit,
		validator: validator.New(),
	}
}

// MountRoutes registers RBAC routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAuthenticated)
		r.Get("/my-permissions", h.myPermissions)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermRBACManage))
		r.Get("/roles", h.listRoles)
		r.Post("/roles", h.createRole)
		r.Get("/permissions", h.listPermissions)
		r.Post("/roles/{roleID}/permissions/{permissionID}", h.grantPermission)
		r.Delete("/roles/{roleID}/permissions/{permissionID}", h.revokePermission)
	})
}

type permissionResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
}

type roleResponse struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Priority    int                  `json:"priority"`
	Permissions []permissionResponse `json:"permissions,omitempty"`
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, "list roles", err)
		return
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		perms, err := h.service.PermissionsOf(r.Context(), role.ID)
		if err != nil {
			h.fail(w, "role permissions", err)
			return
		}
		out = append(out, toRoleResponse(role, perms))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createRoleRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"max=500"`
	Priority    int    `json:"priority" validate:"gte=0,lte=1000"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	role, err := h.service.CreateRole(r.Context(), req.Name, req.Description, req.Priority)
	if err != nil {
		h.fail(w, "create role", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleResponse(role, nil))
}

func (h *Handler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.service.ListPermissions(r.Context())
	if err != nil {
		h.fail(w, "list permissions", err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, toPermissionResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) myPermissions(w http.ResponseWriter, r *http.Request) {
	p := PrincipalFromContext(r.Context())
	perms, err := h.service.EffectivePermissions(r.Context(), p)
	if err != nil {
		h.fail(w, "my permissions", err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, perm := range perms {
		out = append(out, toPermissionResponse(perm))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) grantPermission(w http.ResponseWriter, r *http.Request) {
	roleID, permissionID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.Grant(r.Context(), roleID, permissionID); err != nil {
		h.fail(w, "grant permission", err)
		return
	}
	h.recordAudit(r, "rbac.grant", roleID, permissionID)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

func (h *Handler) revokePermission(w http.ResponseWriter, r *http.Request) {
	roleID, permissionID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.Revoke(r.Context(), roleID, permissionID); err != nil {
		h.fail(w, "revoke permission", err)
		return
	}
	h.recordAudit(r, "rbac.revoke", roleID, permissionID)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

func (h *Handler) pathIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "roleID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid role id")
		return 0, 0, false
	}
	permissionID, err := strconv.ParseInt(chi.URLParam(r, "permissionID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid permission id")
		return 0, 0, false
	}
	return roleID, permissionID, true
}

func (h *Handler) recordAudit(r *http.Request, action string, roleID, permissionID int64) {
	if h.audit == nil {
		return
	}
	var actorID int64
	if p := PrincipalFromContext(r.Context()); p != nil {
		actorID = p.ID
	}
	err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "role",
		EntityID: strconv.FormatInt(roleID, 10),
		Meta:     map[string]any{"permission_id": permissionID},
		At:       time.Now(),
	})
	if err != nil && h.logger != nil {
		h.logger.Warn("audit record", slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func toPermissionResponse(p Permission) permissionResponse {
	return permissionResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Resource:    p.Resource,
		Action:      p.Action,
	}
}

func toRoleResponse(role Role, perms []Permission) roleResponse {
	out := roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Priority:    role.Priority,
	}
	for _, p := range perms {
		out.Permissions = append(out.Permissions, toPermissionResponse(p))
	}
	return out
}
