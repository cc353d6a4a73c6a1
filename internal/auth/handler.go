package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskdesk/taskdesk/internal/platform/httpx"
	"github.com/taskdesk/taskdesk/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	audit     shared.AuditSink
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit shared.AuditSink) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: httpx.NewValidator(),
		audit:     audit,
	}
}

// MountRoutes registers auth routes on provided router. authenticate guards
// logout.
func (h *Handler) MountRoutes(r chi.Router, authenticate func(http.Handler) http.Handler) {
	r.Post("/register", h.handleRegister)
	r.Post("/login", h.handleLogin)
	r.With(authenticate).Post("/logout", h.handleLogout)
}

// MountResetRoutes registers the password reset flow on the users router.
func (h *Handler) MountResetRoutes(r chi.Router) {
	r.Post("/request-password-reset", h.handleRequestReset)
	r.Post("/verify-security-question", h.handleVerifyAnswer)
	r.Post("/reset-password", h.handleResetPassword)
}

type registerRequest struct {
	Username         string `json:"username" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required"`
	SecurityQuestion string `json:"securityQuestion" validate:"required"`
	SecurityAnswer   string `json:"securityQuestionAnswer" validate:"required"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	id, err := h.service.Register(r.Context(), RegisterInput{
		Username:         req.Username,
		Email:            req.Email,
		Password:         req.Password,
		SecurityQuestion: req.SecurityQuestion,
		SecurityAnswer:   req.SecurityAnswer,
	})
	if err != nil {
		if errors.Is(err, shared.ErrConflict) {
			httpx.RespondErrorStatus(w, h.logger, http.StatusBadRequest, err)
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"userId": id})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	identity, token, err := h.service.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) || errors.Is(err, ErrInvalidCredentials) {
			httpx.Message(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, loginResponse{
		UserID:    identity.ID,
		Token:     token.Value,
		ExpiresAt: token.ExpiresAt,
	})
}

// handleLogout has nothing to revoke; the client discards the token.
func (h *Handler) handleLogout(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

type requestResetRequest struct {
	Username string `json:"username" validate:"required"`
}

func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	var req requestResetRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	question, err := h.service.BeginPasswordReset(r.Context(), req.Username)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"securityQuestion": question})
}

type verifyAnswerRequest struct {
	Username string `json:"username" validate:"required"`
	Answer   string `json:"securityQuestionAnswer" validate:"required"`
}

func (h *Handler) handleVerifyAnswer(w http.ResponseWriter, r *http.Request) {
	var req verifyAnswerRequest
	if err := httpx.DecodeAndValidate(r, h.validator, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	token, err := h.service.CompletePasswordReset(r.Context(), req.Username, req.Answer)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"token": token.Value})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	raw, err := httpx.BearerToken(r)
	if err != nil {
		httpx.Message(w, http.StatusUnauthorized, err.Error())
		return
	}
	var req resetPasswordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	// checked before the token is spent so a rejected password can be retried
	if err := validatePassword(req.Password); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	identityID, err := h.service.ConsumeResetToken(r.Context(), raw)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if err := h.service.SetNewPassword(r.Context(), identityID, req.Password); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	shared.RecordBestEffort(r.Context(), h.audit, h.logger, shared.AuditLog{
		ActorID:  identityID,
		Action:   "user.password.reset",
		Entity:   "identity",
		EntityID: identityID,
	})
	httpx.Message(w, http.StatusOK, "password has been reset")
}
