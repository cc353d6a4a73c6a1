package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/taskdesk/taskdesk/internal/platform/httpx"
	"github.com/taskdesk/taskdesk/internal/roles"
	"github.com/taskdesk/taskdesk/internal/shared"
)

// RolesHandler manages role endpoints.
type RolesHandler struct {
	logger   *slog.Logger
	service  *roles.Service
	validate *validator.Validate
	audit    shared.AuditSink
	rbac     Middleware
}

// NewRolesHandler builds RolesHandler instance.
func NewRolesHandler(logger *slog.Logger, service *roles.Service, audit shared.AuditSink, rbac Middleware) *RolesHandler {
	return &RolesHandler{logger: logger, service: service, validate: httpx.NewValidator(), audit: audit, rbac: rbac}
}

// MountRoutes registers role routes. The router must already authenticate.
func (h *RolesHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.Require(Needs("roles", ActionRead), ""))
		r.Get("/", h.listRoles)
		r.Get("/{roleID}", h.getRole)
	})
	r.With(h.rbac.Require(Needs("roles", ActionCreate).OnlyRoles(roles.AdminRoleName), "")).Post("/", h.createRole)
	r.With(h.rbac.Require(Needs("roles", ActionUpdate).OnlyRoles(roles.AdminRoleName), "")).Post("/{roleID}/permissions", h.addPermissions)
	r.With(h.rbac.Require(Needs("roles", ActionDelete).OnlyRoles(roles.AdminRoleName), "")).Delete("/{roleID}", h.deleteRole)
}

type permissionDTO struct {
	Resource string `json:"resource" validate:"required"`
	Action   string `json:"action" validate:"required"`
}

type createRoleRequest struct {
	Name        string          `json:"name" validate:"required"`
	CanAssign   []string        `json:"canAssign"`
	Permissions []permissionDTO `json:"permissions" validate:"dive"`
}

type addPermissionsRequest struct {
	Permissions []permissionDTO `json:"permissions" validate:"required,min=1,dive"`
}

func toPermissions(dtos []permissionDTO) []roles.Permission {
	perms := make([]roles.Permission, 0, len(dtos))
	for _, d := range dtos {
		perms = append(perms, roles.Permission{Resource: d.Resource, Action: d.Action})
	}
	return perms
}

func (h *RolesHandler) listRoles(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListRoles(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if list == nil {
		list = []roles.Role{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": list})
}

func (h *RolesHandler) getRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.FindRoleByID(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, role)
}

func (h *RolesHandler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	id, err := h.service.CreateRole(r.Context(), req.Name, req.CanAssign, toPermissions(req.Permissions))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.record(r, "role.create", id, map[string]any{"name": roles.NormalizeName(req.Name)})
	httpx.JSON(w, http.StatusCreated, map[string]string{"roleId": id})
}

func (h *RolesHandler) addPermissions(w http.ResponseWriter, r *http.Request) {
	var req addPermissionsRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	roleID := chi.URLParam(r, "roleID")
	perms := toPermissions(req.Permissions)
	if err := h.service.AddPermissions(r.Context(), roleID, perms); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.record(r, "role.permissions.add", roleID, map[string]any{"permissions": permissionNames(perms)})
	httpx.Message(w, http.StatusOK, "permissions added")
}

func (h *RolesHandler) deleteRole(w http.ResponseWriter, r *http.Request) {
	roleID := chi.URLParam(r, "roleID")
	if err := h.service.DeleteRole(r.Context(), roleID); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	h.record(r, "role.delete", roleID, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (h *RolesHandler) record(r *http.Request, action, roleID string, meta map[string]any) {
	ac, _ := shared.AuthFromContext(r.Context())
	shared.RecordBestEffort(r.Context(), h.audit, h.logger, shared.AuditLog{
		ActorID:  ac.IdentityID,
		Action:   action,
		Entity:   "role",
		EntityID: roleID,
		Meta:     meta,
	})
}

// PermissionsHandler manages the permission catalog endpoints.
type PermissionsHandler struct {
	logger   *slog.Logger
	service  *roles.Service
	validate *validator.Validate
	audit    shared.AuditSink
	rbac     Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *roles.Service, audit shared.AuditSink, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, service: service, validate: httpx.NewValidator(), audit: audit, rbac: rbac}
}

// MountRoutes registers permission routes. The router must already authenticate.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.With(h.rbac.Require(Needs("permissions", ActionRead), "")).Get("/", h.listPermissions)
	r.With(h.rbac.Require(Needs("permissions", ActionAssign).OnlyRoles(roles.AdminRoleName), "")).Post("/assign", h.assignPermissions)
}

type assignPermissionsRequest struct {
	RoleID      string          `json:"roleId" validate:"required"`
	Permissions []permissionDTO `json:"permissions" validate:"required,min=1,dive"`
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListCatalog(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []roles.CatalogEntry{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"permissions": entries})
}

func (h *PermissionsHandler) assignPermissions(w http.ResponseWriter, r *http.Request) {
	var req assignPermissionsRequest
	if err := httpx.DecodeAndValidate(r, h.validate, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	perms := toPermissions(req.Permissions)
	if err := h.service.AddPermissions(r.Context(), req.RoleID, perms); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	ac, _ := shared.AuthFromContext(r.Context())
	shared.RecordBestEffort(r.Context(), h.audit, h.logger, shared.AuditLog{
		ActorID:  ac.IdentityID,
		Action:   "role.permissions.add",
		Entity:   "role",
		EntityID: req.RoleID,
		Meta:     map[string]any{"permissions": permissionNames(perms)},
	})
	httpx.Message(w, http.StatusOK, "permissions assigned")
}

func permissionNames(perms []roles.Permission) []string {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name())
	}
	return names
}
