package departments

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

// Handler exposes department endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        rbac.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		mw:        mw,
		validator: validator.New(),
	}
}

// MountRoutes registers department routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermDepartmentsRead))
		r.Get("/", h.list)
		r.Get("/{departmentID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermDepartmentsCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermDepartmentsUpdate))
		r.Put("/{departmentID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermDepartmentsDelete))
		r.Delete("/{departmentID}", h.delete)
	})
}

type departmentPayload struct {
	Name         string `json:"name" validate:"required,max=200"`
	Description  string `json:"description" validate:"max=1000"`
	Phone        string `json:"phone" validate:"max=30"`
	Floor        int    `json:"floor" validate:"gte=0"`
	Capacity     int    `json:"capacity" validate:"gte=0"`
	HeadDoctorID *int64 `json:"head_doctor_id"`
	IsActive     *bool  `json:"is_active"`
}

type departmentResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	Floor        int       `json:"floor"`
	Capacity     int       `json:"capacity"`
	HeadDoctorID *int64    `json:"head_doctor_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var params shared.ListParams
	if v, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil {
		params.Skip = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		params.Limit = v
	}
	list, err := h.service.List(r.Context(), params)
	if err != nil {
		h.fail(w, "list departments", err)
		return
	}
	out := make([]departmentResponse, 0, len(list))
	for _, d := range list {
		out = append(out, toDepartmentResponse(d))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get department", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDepartmentResponse(d))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	d, err := h.service.Create(r.Context(), payload)
	if err != nil {
		h.fail(w, "create department", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toDepartmentResponse(d))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req departmentPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	current, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get department", err)
		return
	}
	active := current.IsActive
	if req.IsActive != nil {
		active = *req.IsActive
	}
	d, err := h.service.Update(r.Context(), Department{
		ID:           id,
		Name:         req.Name,
		Description:  req.Description,
		Phone:        req.Phone,
		Floor:        req.Floor,
		Capacity:     req.Capacity,
		HeadDoctorID: req.HeadDoctorID,
		IsActive:     active,
	})
	if err != nil {
		h.fail(w, "update department", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDepartmentResponse(d))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete department", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Department, bool) {
	var req departmentPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return Department{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Department{}, false
	}
	return Department{
		Name:         req.Name,
		Description:  req.Description,
		Phone:        req.Phone,
		Floor:        req.Floor,
		Capacity:     req.Capacity,
		HeadDoctorID: req.HeadDoctorID,
	}, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "departmentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid department id")
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func toDepartmentResponse(d Department) departmentResponse {
	return departmentResponse{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		Phone:        d.Phone,
		Floor:        d.Floor,
		Capacity:     d.Capacity,
		HeadDoctorID: d.HeadDoctorID,
		IsActive:     d.IsActive,
		CreatedAt:    d.CreatedAt,
	}
}
