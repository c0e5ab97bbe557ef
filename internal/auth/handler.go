package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/helix-hms/helix-hms/internal/platform/httpx"
	"github.com/helix-hms/helix-hms/internal/rbac"
	"github.com/helix-hms/helix-hms/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Get("/me", h.handleMe)
}

type loginRequest struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	token, account, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("login failed", slog.String("username", req.Username))
		}
		httpx.RespondError(w, err)
		return
	}
	if h.logger != nil {
		h.logger.Info("login", slog.String("username", account.Username))
	}
	httpx.JSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.service.tokens.TTL().Seconds()),
	})
}

type meResponse struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Active   bool     `json:"active"`
	Roles    []string `json:"roles"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p := rbac.PrincipalFromContext(r.Context())
	if p == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	httpx.JSON(w, http.StatusOK, meResponse{
		ID:       p.ID,
		Username: p.Username,
		Active:   p.Active,
		Roles:    p.Roles,
	})
}
