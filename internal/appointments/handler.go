package appointments

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

// Handler exposes scheduling endpoints.
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

// MountRoutes registers appointment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermAppointmentsRead))
		r.Get("/", h.list)
		r.Get("/{appointmentID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermAppointmentsCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermAppointmentsUpdate))
		r.Put("/{appointmentID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermAppointmentsDelete))
		r.Delete("/{appointmentID}", h.cancel)
	})
}

type appointmentResponse struct {
	ID           int64     `json:"id"`
	PatientID    int64     `json:"patient_id"`
	DoctorID     int64     `json:"doctor_id"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	Date         string    `json:"appointment_date"`
	Time         string    `json:"appointment_time"`
	Duration     int       `json:"duration_minutes"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedByID  int64     `json:"created_by_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.listFilter(w, r)
	if !ok {
		return
	}
	var params shared.ListParams
	if v, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil {
		params.Skip = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		params.Limit = v
	}
	list, err := h.service.List(r.Context(), filter, params)
	if err != nil {
		h.fail(w, "list appointments", err)
		return
	}
	out := make([]appointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toAppointmentResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get appointment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAppointmentResponse(a))
}

type createAppointmentRequest struct {
	PatientID    int64  `json:"patient_id" validate:"required,gt=0"`
	DoctorID     int64  `json:"doctor_id" validate:"required,gt=0"`
	DepartmentID *int64 `json:"department_id"`
	Date         string `json:"appointment_date" validate:"required,datetime=2006-01-02"`
	Time         string `json:"appointment_time" validate:"required,datetime=15:04"`
	Duration     int    `json:"duration_minutes" validate:"gte=0,lte=480"`
	Reason       string `json:"reason" validate:"max=1000"`
	Notes        string `json:"notes" validate:"max=2000"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid appointment_date")
		return
	}
	var createdBy int64
	if p := rbac.PrincipalFromContext(r.Context()); p != nil {
		createdBy = p.ID
	}
	a, err := h.service.Create(r.Context(), createdBy, CreateInput{
		PatientID:    req.PatientID,
		DoctorID:     req.DoctorID,
		DepartmentID: req.DepartmentID,
		Date:         date,
		Time:         req.Time,
		Duration:     req.Duration,
		Reason:       req.Reason,
		Notes:        req.Notes,
	})
	if err != nil {
		h.fail(w, "create appointment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAppointmentResponse(a))
}

type updateAppointmentRequest struct {
	Date     *string `json:"appointment_date" validate:"omitempty,datetime=2006-01-02"`
	Time     *string `json:"appointment_time" validate:"omitempty,datetime=15:04"`
	Duration *int    `json:"duration_minutes" validate:"omitempty,gte=0,lte=480"`
	Status   *string `json:"status"`
	Reason   *string `json:"reason" validate:"omitempty,max=1000"`
	Notes    *string `json:"notes" validate:"omitempty,max=2000"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateAppointmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := UpdateInput{
		Duration: req.Duration,
		Reason:   req.Reason,
		Notes:    req.Notes,
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid appointment_date")
			return
		}
		input.Date = &date
	}
	if req.Time != nil {
		input.Time = req.Time
	}
	if req.Status != nil {
		status := Status(*req.Status)
		if !status.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status")
			return
		}
		input.Status = &status
	}
	a, err := h.service.Update(r.Context(), id, input)
	if err != nil {
		h.fail(w, "update appointment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAppointmentResponse(a))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	a, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.fail(w, "cancel appointment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAppointmentResponse(a))
}

func (h *Handler) listFilter(w http.ResponseWriter, r *http.Request) (ListFilter, bool) {
	var filter ListFilter
	query := r.URL.Query()
	if raw := query.Get("patient_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid patient_id")
			return ListFilter{}, false
		}
		filter.PatientID = &id
	}
	if raw := query.Get("doctor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid doctor_id")
			return ListFilter{}, false
		}
		filter.DoctorID = &id
	}
	if raw := query.Get("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid date")
			return ListFilter{}, false
		}
		filter.Date = &date
	}
	if raw := query.Get("status"); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown status")
			return ListFilter{}, false
		}
		filter.Status = &status
	}
	return filter, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "appointmentID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid appointment id")
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

func toAppointmentResponse(a Appointment) appointmentResponse {
	return appointmentResponse{
		ID:           a.ID,
		PatientID:    a.PatientID,
		DoctorID:     a.DoctorID,
		DepartmentID: a.DepartmentID,
		Date:         a.Date.Format("2006-01-02"),
		Time:         a.Time,
		Duration:     a.Duration,
		Status:       string(a.Status),
		Reason:       a.Reason,
		Notes:        a.Notes,
		CreatedByID:  a.CreatedByID,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}
