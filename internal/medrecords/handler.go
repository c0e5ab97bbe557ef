package medrecords

import (
	"errors"
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

// Handler exposes medical record endpoints.
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

// MountRoutes registers medical record routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermMedicalRecordsRead))
		r.Get("/", h.list)
		r.Get("/{recordID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermMedicalRecordsCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermMedicalRecordsUpdate))
		r.Put("/{recordID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermMedicalRecordsDelete))
		r.Delete("/{recordID}", h.delete)
	})
}

type recordResponse struct {
	ID             int64     `json:"id"`
	PatientID      int64     `json:"patient_id"`
	DoctorID       int64     `json:"doctor_id"`
	AppointmentID  *int64    `json:"appointment_id,omitempty"`
	VisitDate      time.Time `json:"visit_date"`
	Diagnosis      string    `json:"diagnosis"`
	Symptoms       string    `json:"symptoms,omitempty"`
	Treatment      string    `json:"treatment,omitempty"`
	Prescriptions  string    `json:"prescriptions,omitempty"`
	LabResults     string    `json:"lab_results,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	IsConfidential bool      `json:"is_confidential"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var filter ListFilter
	query := r.URL.Query()
	if raw := query.Get("patient_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid patient_id")
			return
		}
		filter.PatientID = &id
	}
	if raw := query.Get("doctor_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid doctor_id")
			return
		}
		filter.DoctorID = &id
	}
	var params shared.ListParams
	if v, err := strconv.Atoi(query.Get("skip")); err == nil {
		params.Skip = v
	}
	if v, err := strconv.Atoi(query.Get("limit")); err == nil {
		params.Limit = v
	}
	list, err := h.service.List(r.Context(), rbac.PrincipalFromContext(r.Context()), filter, params)
	if err != nil {
		h.fail(w, "list records", err)
		return
	}
	out := make([]recordResponse, 0, len(list))
	for _, rec := range list {
		out = append(out, toRecordResponse(rec))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Get(r.Context(), rbac.PrincipalFromContext(r.Context()), id)
	if err != nil {
		h.recordDenied(r, id, err)
		h.fail(w, "get record", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRecordResponse(rec))
}

type createRecordRequest struct {
	PatientID      int64      `json:"patient_id" validate:"required,gt=0"`
	AppointmentID  *int64     `json:"appointment_id"`
	VisitDate      *time.Time `json:"visit_date"`
	Diagnosis      string     `json:"diagnosis" validate:"required,max=2000"`
	Symptoms       string     `json:"symptoms" validate:"max=2000"`
	Treatment      string     `json:"treatment" validate:"max=2000"`
	Prescriptions  string     `json:"prescriptions" validate:"max=2000"`
	LabResults     string     `json:"lab_results" validate:"max=2000"`
	Notes          string     `json:"notes" validate:"max=2000"`
	IsConfidential bool       `json:"is_confidential"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRecordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := CreateInput{
		PatientID:      req.PatientID,
		AppointmentID:  req.AppointmentID,
		Diagnosis:      req.Diagnosis,
		Symptoms:       req.Symptoms,
		Treatment:      req.Treatment,
		Prescriptions:  req.Prescriptions,
		LabResults:     req.LabResults,
		Notes:          req.Notes,
		IsConfidential: req.IsConfidential,
	}
	if req.VisitDate != nil {
		input.VisitDate = *req.VisitDate
	}
	rec, err := h.service.Create(r.Context(), rbac.PrincipalFromContext(r.Context()), input)
	if err != nil {
		h.fail(w, "create record", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRecordResponse(rec))
}

type updateRecordRequest struct {
	Diagnosis      *string `json:"diagnosis" validate:"omitempty,max=2000"`
	Symptoms       *string `json:"symptoms" validate:"omitempty,max=2000"`
	Treatment      *string `json:"treatment" validate:"omitempty,max=2000"`
	Prescriptions  *string `json:"prescriptions" validate:"omitempty,max=2000"`
	LabResults     *string `json:"lab_results" validate:"omitempty,max=2000"`
	Notes          *string `json:"notes" validate:"omitempty,max=2000"`
	IsConfidential *bool   `json:"is_confidential"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req updateRecordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.Update(r.Context(), rbac.PrincipalFromContext(r.Context()), id, UpdateInput{
		Diagnosis:      req.Diagnosis,
		Symptoms:       req.Symptoms,
		Treatment:      req.Treatment,
		Prescriptions:  req.Prescriptions,
		LabResults:     req.LabResults,
		Notes:          req.Notes,
		IsConfidential: req.IsConfidential,
	})
	if err != nil {
		h.recordDenied(r, id, err)
		h.fail(w, "update record", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRecordResponse(rec))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), rbac.PrincipalFromContext(r.Context()), id); err != nil {
		h.recordDenied(r, id, err)
		h.fail(w, "delete record", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "recordID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid record id")
		return 0, false
	}
	return id, true
}

// recordDenied leaves an audit trail for refused record access.
func (h *Handler) recordDenied(r *http.Request, recordID int64, err error) {
	var forbidden *shared.ForbiddenError
	if h.audit == nil || !errors.As(err, &forbidden) {
		return
	}
	var actorID int64
	if p := rbac.PrincipalFromContext(r.Context()); p != nil {
		actorID = p.ID
	}
	auditErr := h.audit.Record(r.Context(), shared.AuditLog{
		ActorID:  actorID,
		Action:   "medical_records.denied",
		Entity:   "medical_record",
		EntityID: strconv.FormatInt(recordID, 10),
		Meta:     map[string]any{"reason": forbidden.Reason},
		At:       time.Now(),
	})
	if auditErr != nil && h.logger != nil {
		h.logger.Warn("audit record", slog.Any("error", auditErr))
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func toRecordResponse(rec Record) recordResponse {
	return recordResponse{
		ID:             rec.ID,
		PatientID:      rec.PatientID,
		DoctorID:       rec.DoctorID,
		AppointmentID:  rec.AppointmentID,
		VisitDate:      rec.VisitDate,
		Diagnosis:      rec.Diagnosis,
		Symptoms:       rec.Symptoms,
		Treatment:      rec.Treatment,
		Prescriptions:  rec.Prescriptions,
		LabResults:     rec.LabResults,
		Notes:          rec.Notes,
		IsConfidential: rec.IsConfidential,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}
