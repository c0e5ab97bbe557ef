package users

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helix-hms/helix-hms/internal/platform/httpx"
	"github.com/helix-hms/helix-hms/internal/rbac"
	"github.com/helix-hms/helix-hms/internal/shared"
)

// Handler exposes user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        rbac.Middleware
	audit     *shared.AuditLogger
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware, audit *shared.AuditLogger) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		audit:     audit,
		validator: validator.New(),
	}
}

// MountRoutes registers user management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermUsersRead))
		r.Get("/", h.list)
		r.Get("/{userID}", h.get)
		r.Get("/{userID}/roles", h.listRoles)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermUsersCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermUsersUpdate))
		r.Put("/{userID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermUsersDelete))
		r.Delete("/{userID}", h.delete)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermRBACManage))
		r.Post("/{userID}/roles/{roleID}", h.assignRole)
		r.Delete("/{userID}/roles/{roleID}", h.unassignRole)
	})
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context(), listParams(r))
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	out := make([]userResponse, 0, len(list))
	for _, u := range list {
		out = append(out, toUserResponse(u))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	u, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toUserResponse(u))
}

type createUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"max=30"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	u, err := h.service.Create(r.Context(), CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	h.recordAudit(r, "users.create", u.ID, nil)
	httpx.JSON(w, http.StatusCreated, toUserResponse(u))
}

type updateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	FullName *string `json:"full_name" validate:"omitempty,max=200"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
	Password *string `json:"password" validate:"omitempty,min=6,max=128"`
	IsActive *bool   `json:"is_active"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	u, err := h.service.Update(r.Context(), id, UpdateUserInput{
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
		Password: req.Password,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.fail(w, "update user", err)
		return
	}
	h.recordAudit(r, "users.update", u.ID, nil)
	httpx.JSON(w, http.StatusOK, toUserResponse(u))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	actor := rbac.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		h.fail(w, "delete user", err)
		return
	}
	h.recordAudit(r, "users.delete", id, nil)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "userID")
	if !ok {
		return
	}
	roles, err := h.service.RolesOf(r.Context(), id)
	if err != nil {
		h.fail(w, "list user roles", err)
		return
	}
	type roleResponse struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Priority int    `json:"priority"`
	}
	out := make([]roleResponse, 0, len(roles))
	for _, role := range roles {
		out = append(out, roleResponse{ID: role.ID, Name: role.Name, Priority: role.Priority})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID, ok := rolePathIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.AssignRole(r.Context(), userID, roleID); err != nil {
		h.fail(w, "assign role", err)
		return
	}
	h.recordAudit(r, "users.assign_role", userID, map[string]any{"role_id": roleID})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "assigned"})
}

func (h *Handler) unassignRole(w http.ResponseWriter, r *http.Request) {
	userID, roleID, ok := rolePathIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.UnassignRole(r.Context(), userID, roleID); err != nil {
		h.fail(w, "unassign role", err)
		return
	}
	h.recordAudit(r, "users.unassign_role", userID, map[string]any{"role_id": roleID})
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "unassigned"})
}

func rolePathIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := pathID(w, r, "userID")
	if !ok {
		return 0, 0, false
	}
	roleID, ok := pathID(w, r, "roleID")
	if !ok {
		return 0, 0, false
	}
	return userID, roleID, true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name)
		return 0, false
	}
	return id, true
}

func listParams(r *http.Request) shared.ListParams {
	var params shared.ListParams
	if v, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil {
		params.Skip = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		params.Limit = v
	}
	return params
}

func (h *Handler) recordAudit(r *http.Request, action string, entityID int64, meta map[string]any) {
	if h.audit == nil {
		return
	}
	var actorID int64
	if p := rbac.PrincipalFromContext(r.Context()); p != nil {
		actorID = p.ID
	}
	err := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
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

func toUserResponse(u User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FullName:  u.FullName,
		Phone:     u.Phone,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
