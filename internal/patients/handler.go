package patients

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

// Handler exposes the patient registry endpoints.
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

// MountRoutes registers patient routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermPatientsRead))
		r.Get("/", h.list)
		r.Get("/{patientID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermPatientsCreate))
		r.Post("/", h.create)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermPatientsUpdate))
		r.Put("/{patientID}", h.update)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.mw.Require(shared.PermPatientsDelete))
		r.Delete("/{patientID}", h.delete)
	})
}

type patientPayload struct {
	FirstName       string `json:"first_name" validate:"required,max=100"`
	LastName        string `json:"last_name" validate:"required,max=100"`
	MiddleName      string `json:"middle_name" validate:"max=100"`
	BirthDate       string `json:"birth_date" validate:"required,datetime=2006-01-02"`
	Gender          string `json:"gender" validate:"omitempty,oneof=male female other"`
	Phone           string `json:"phone" validate:"required,max=30"`
	Email           string `json:"email" validate:"omitempty,email"`
	Address         string `json:"address" validate:"max=500"`
	InsuranceNumber string `json:"insurance_number" validate:"max=50"`
	BloodType       string `json:"blood_type" validate:"max=10"`
	Allergies       string `json:"allergies"`
	ChronicDiseases string `json:"chronic_diseases"`
	EmergencyName   string `json:"emergency_contact" validate:"max=200"`
	EmergencyPhone  string `json:"emergency_phone" validate:"max=30"`
}

type patientResponse struct {
	ID              int64     `json:"id"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	MiddleName      string    `json:"middle_name,omitempty"`
	BirthDate       string    `json:"birth_date"`
	Gender          string    `json:"gender,omitempty"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email,omitempty"`
	Address         string    `json:"address,omitempty"`
	InsuranceNumber string    `json:"insurance_number,omitempty"`
	BloodType       string    `json:"blood_type,omitempty"`
	Allergies       string    `json:"allergies,omitempty"`
	ChronicDiseases string    `json:"chronic_diseases,omitempty"`
	EmergencyName   string    `json:"emergency_contact,omitempty"`
	EmergencyPhone  string    `json:"emergency_phone,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Search: r.URL.Query().Get("search")}
	var params shared.ListParams
	if v, err := strconv.Atoi(r.URL.Query().Get("skip")); err == nil {
		params.Skip = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		params.Limit = v
	}
	list, err := h.service.List(r.Context(), filter, params)
	if err != nil {
		h.fail(w, "list patients", err)
		return
	}
	out := make([]patientResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPatientResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get patient", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPatientResponse(p))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	p, err := h.service.Create(r.Context(), payload)
	if err != nil {
		h.fail(w, "create patient", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPatientResponse(p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	payload, ok := h.decode(w, r)
	if !ok {
		return
	}
	current, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get patient", err)
		return
	}
	payload.ID = id
	payload.IsActive = current.IsActive
	p, err := h.service.Update(r.Context(), payload)
	if err != nil {
		h.fail(w, "update patient", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPatientResponse(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete patient", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// decode parses and validates the shared create/update payload.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Patient, bool) {
	var req patientPayload
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return Patient{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return Patient{}, false
	}
	birthDate, err := time.Parse("2006-01-02", req.BirthDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid birth_date")
		return Patient{}, false
	}
	return Patient{
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		MiddleName:      req.MiddleName,
		BirthDate:       birthDate,
		Gender:          req.Gender,
		Phone:           req.Phone,
		Email:           req.Email,
		Address:         req.Address,
		InsuranceNumber: req.InsuranceNumber,
		BloodType:       req.BloodType,
		Allergies:       req.Allergies,
		ChronicDiseases: req.ChronicDiseases,
		EmergencyName:   req.EmergencyName,
		EmergencyPhone:  req.EmergencyPhone,
	}, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "patientID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid patient id")
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

func toPatientResponse(p Patient) patientResponse {
	return patientResponse{
		ID:              p.ID,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		MiddleName:      p.MiddleName,
		BirthDate:       p.BirthDate.Format("2006-01-02"),
		Gender:          p.Gender,
		Phone:           p.Phone,
		Email:           p.Email,
		Address:         p.Address,
		InsuranceNumber: p.InsuranceNumber,
		BloodType:       p.BloodType,
		Allergies:       p.Allergies,
		ChronicDiseases: p.ChronicDiseases,
		EmergencyName:   p.EmergencyName,
		EmergencyPhone:  p.EmergencyPhone,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
