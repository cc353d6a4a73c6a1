package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskdesk/taskdesk/internal/platform/httpx"
	"github.com/taskdesk/taskdesk/internal/rbac"
	"github.com/taskdesk/taskdesk/internal/roles"
	"github.com/taskdesk/taskdesk/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	audit    shared.AuditSink
	rbac     rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, audit shared.AuditSink, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: httpx.NewValidator(), audit: audit, rbac: rbac}
}

// MountRoutes registers user routes. The router must already authenticate.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.Authenticated(), ""))
		r.Get("/me", h.me)
		r.Put("/me/profile", h.updateProfile)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(rbac.Needs("users", rbac.ActionRead), ""))
		r.Get("/", h.listUsers)
		r.Get("/{id}", h.getUser)
	})
	r.With(h.rbac.Require(
		rbac.Needs("users", rbac.ActionUpdate).OnlyRoles(roles.AdminRoleName, "manager").NotSelf(), "id",
	)).Put("/{id}/role", h.assignRole)
	r.With(h.rbac.Require(
		rbac.Needs("users", rbac.ActionDelete).OnlyRoles(roles.AdminRoleName).NotSelf(), "id",
	)).Delete("/{id}", h.deleteUser)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	ac, _ := shared.AuthFromContext(r.Context())
	account, err := h.service.Account(r.Context(), ac.IdentityID, true)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

type profileRequest struct {
	DisplayName *string `json:"displayName" validate:"omitempty,max=120"`
	Phone       *string `json:"phone" validate:"omitempty,max=40"`
	Address     *string `json:"address" validate:"omitempty,max=240"`
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	ac, _ := shared.AuthFromContext(r.Context())
	profile, err := h.service.UpdateProfile(r.Context(), ac.IdentityID, ProfileInput{
		DisplayName: req.DisplayName,
		Phone:       req.Phone,
		Address:     req.Address,
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if list == nil {
		list = []Identity{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": list})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	account, err := h.service.Account(r.Context(), chi.URLParam(r, "id"), false)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, account)
}

type assignRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func (h *Handler) assignRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	ac, _ := shared.AuthFromContext(r.Context())
	targetID := chi.URLParam(r, "id")
	role, err := h.service.AssignRole(r.Context(), ac.RoleID, targetID, req.Role)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	shared.RecordBestEffort(r.Context(), h.audit, h.logger, shared.AuditLog{
		ActorID:  ac.IdentityID,
		Action:   "user.role.assign",
		Entity:   "identity",
		EntityID: targetID,
		Meta:     map[string]any{"role_id": role.ID, "role": role.Name},
	})
	httpx.JSON(w, http.StatusOK, map[string]string{"userId": targetID, "roleId": role.ID, "role": role.Name})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	ac, _ := shared.AuthFromContext(r.Context())
	targetID := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), targetID); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	shared.RecordBestEffort(r.Context(), h.audit, h.logger, shared.AuditLog{
		ActorID:  ac.IdentityID,
		Action:   "user.delete",
		Entity:   "identity",
		EntityID: targetID,
	})
	w.WriteHeader(http.StatusNoContent)
}
