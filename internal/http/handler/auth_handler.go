package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tork-crm/tork-api/internal/auth"
	"github.com/tork-crm/tork-api/internal/domain"
	"github.com/tork-crm/tork-api/internal/service"
	"go.uber.org/zap"
)

const (
	msgInvalidCredentials = "Credenciais inválidas no Tork/Chatwoot"
	msgLoginFailed        = "Erro interno no login SSO"
	msgHelpdeskUserFailed = "Falha ao criar usuário no sistema de atendimento."
)

// AuthHandler handles sign-in through the helpdesk and session endpoints
type AuthHandler struct {
	authService *service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login godoc
// @Summary Sign in
// @Description Verifies the credentials against the helpdesk and issues a session token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.LoginRequest true "Credentials"
// @Success 200 {object} domain.LoginResponse
// @Failure 401 {object} domain.WebhookError
// @Failure 500 {object} domain.WebhookError
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWebhookError(w, http.StatusBadRequest, msgInvalidPayload, "")
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		if errors.Is(err, service.ErrUnauthorized) {
			respondWebhookError(w, http.StatusUnauthorized, msgInvalidCredentials, "")
			return
		}
		h.logger.Error("login failed", zap.Error(err))
		respondWebhookError(w, http.StatusInternalServerError, msgLoginFailed, "")
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Register godoc
// @Summary Register a broker
// @Description Creates the helpdesk agent and the local user
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.RegisterRequest true "New user"
// @Success 200 {object} domain.RegisterResponse
// @Failure 400 {object} domain.WebhookError
// @Failure 500 {object} domain.WebhookError
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWebhookError(w, http.StatusBadRequest, msgInvalidPayload, "")
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		respondWebhookError(w, http.StatusBadRequest, "Missing fields", "")
		return
	}

	resp, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			respondWebhookError(w, http.StatusBadRequest, "Missing fields", "")
		case errors.Is(err, service.ErrHelpdeskUnavailable):
			respondWebhookError(w, http.StatusInternalServerError, msgHelpdeskUserFailed, "")
		default:
			h.logger.Error("register failed", zap.Error(err))
			respondWebhookError(w, http.StatusInternalServerError, "Internal Server Error", "")
		}
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Logout godoc
// @Summary Sign out
// @Description Revokes the current token until it expires
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.LogoutResponse
// @Security BearerAuth
// @Router /api/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.FromContext(r.Context())
	if err := h.authService.Logout(r.Context(), user); err != nil {
		h.logger.Error("logout failed", zap.Error(err))
		respondWebhookError(w, http.StatusInternalServerError, "Internal Server Error", "")
		return
	}

	respondJSON(w, http.StatusOK, domain.LogoutResponse{
		Success: true,
		Message: "Logged out successfully",
	})
}

// Me godoc
// @Summary Current user
// @Tags Auth
// @Produce json
// @Success 200 {object} domain.UserDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	respondJSON(w, http.StatusOK, domain.UserDTO{
		ID:    user.UserID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	})
}
