package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk/taskdesk/internal/roles"
	"github.com/taskdesk/taskdesk/internal/shared"
)

type stubTokens map[string]string

func (s stubTokens) ResolveToken(_ context.Context, token string) (string, error) {
	id, ok := s[token]
	if !ok {
		return "", shared.ErrUnauthenticated
	}
	return id, nil
}

type stubRoles struct {
	byIdentity map[string]roles.Role
	err        error
	calls      int
}

func (s *stubRoles) RoleForIdentity(_ context.Context, identityID string) (roles.Role, error) {
	s.calls++
	if s.err != nil {
		return roles.Role{}, s.err
	}
	role, ok := s.byIdentity[identityID]
	if !ok {
		return roles.Role{}, shared.ErrNotFound
	}
	return role, nil
}

type countingRecorder map[string]int

func (c countingRecorder) ObserveDecision(outcome, reason string) {
	c[outcome+"/"+reason]++
}

func newGuardedRouter(m Middleware, req Requirement) http.Handler {
	r := chi.NewRouter()
	r.Use(m.Authenticate)
	r.With(m.Require(req, "id")).Put("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		ac, _ := shared.AuthFromContext(r.Context())
		_ = json.NewEncoder(w).Encode(ac)
	})
	return r
}

func doRequest(t *testing.T, h http.Handler, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPut, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func messageOf(t *testing.T, res *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body.Message
}

func TestMiddlewareRejectsMissingAndInvalidTokens(t *testing.T) {
	m := Middleware{Tokens: stubTokens{}, Roles: &stubRoles{}}
	h := newGuardedRouter(m, Needs("users", ActionUpdate))

	res := doRequest(t, h, "/users/u-2", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "missing bearer token", messageOf(t, res))

	res = doRequest(t, h, "/users/u-2", "forged")
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "invalid or expired token", messageOf(t, res))
}

func TestMiddlewareAllowsAndAttachesRole(t *testing.T) {
	roleStore := &stubRoles{byIdentity: map[string]roles.Role{"u-1": managerRole}}
	recorder := countingRecorder{}
	m := Middleware{Tokens: stubTokens{"tok": "u-1"}, Roles: roleStore, Metrics: recorder}
	h := newGuardedRouter(m, Needs("users", ActionUpdate).OnlyRoles("manager").NotSelf())

	res := doRequest(t, h, "/users/u-2", "tok")
	require.Equal(t, http.StatusOK, res.Code)
	var ac shared.AuthenticatedContext
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &ac))
	assert.Equal(t, shared.AuthenticatedContext{IdentityID: "u-1", RoleID: "r-manager", RoleName: "manager"}, ac)
	assert.Equal(t, 1, recorder["allow/granted"])
}

func TestMiddlewareDeniesSelfModification(t *testing.T) {
	recorder := countingRecorder{}
	m := Middleware{
		Tokens:  stubTokens{"tok": "u-1"},
		Roles:   &stubRoles{byIdentity: map[string]roles.Role{"u-1": managerRole}},
		Metrics: recorder,
	}
	h := newGuardedRouter(m, Needs("users", ActionUpdate).NotSelf())

	res := doRequest(t, h, "/users/u-1", "tok")
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, ErrSelfModificationForbidden.Error(), messageOf(t, res))
	assert.Equal(t, 1, recorder["deny/self_modification"])
}

func TestMiddlewareReloadsRoleOnEveryRequest(t *testing.T) {
	roleStore := &stubRoles{byIdentity: map[string]roles.Role{"u-1": managerRole}}
	m := Middleware{Tokens: stubTokens{"tok": "u-1"}, Roles: roleStore}
	h := newGuardedRouter(m, Needs("users", ActionUpdate))

	require.Equal(t, http.StatusOK, doRequest(t, h, "/users/u-2", "tok").Code)

	roleStore.byIdentity["u-1"] = employeeRole
	res := doRequest(t, h, "/users/u-2", "tok")
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, 2, roleStore.calls)
}

func TestMiddlewareRoleLookupFailures(t *testing.T) {
	roleStore := &stubRoles{byIdentity: map[string]roles.Role{}}
	m := Middleware{Tokens: stubTokens{"tok": "u-gone"}, Roles: roleStore}
	h := newGuardedRouter(m, Authenticated())

	assert.Equal(t, http.StatusUnauthorized, doRequest(t, h, "/users/x", "tok").Code)

	roleStore.err = errors.New("connection reset")
	res := doRequest(t, h, "/users/x", "tok")
	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), messageOf(t, res))

	roleStore.err = shared.ErrUnavailable
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(t, h, "/users/x", "tok").Code)
}
