package workitems

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk/taskdesk/internal/rbac"
	"github.com/taskdesk/taskdesk/internal/roles"
	"github.com/taskdesk/taskdesk/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[string]Item
}

func (m *memoryRepo) Insert(_ context.Context, item Item) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	m.items[item.ID] = item
	return item, nil
}

func (m *memoryRepo) Get(_ context.Context, id string) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (m *memoryRepo) List(_ context.Context, _ int) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Item, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	return out, nil
}

func (m *memoryRepo) Update(_ context.Context, item Item) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return Item{}, ErrItemNotFound
	}
	item.UpdatedAt = time.Now()
	m.items[item.ID] = item
	return item, nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(m.items, id)
	return nil
}

type identityTokens map[string]string

func (t identityTokens) ResolveToken(_ context.Context, token string) (string, error) {
	id, ok := t[token]
	if !ok {
		return "", shared.ErrUnauthenticated
	}
	return id, nil
}

type identityRoles map[string]roles.Role

func (m identityRoles) RoleForIdentity(_ context.Context, id string) (roles.Role, error) {
	role, ok := m[id]
	if !ok {
		return roles.Role{}, shared.ErrNotFound
	}
	return role, nil
}

func newWorkOrderRouter(t *testing.T) (http.Handler, *memoryRepo) {
	t.Helper()
	repo := &memoryRepo{items: map[string]Item{}}
	mw := rbac.Middleware{
		Tokens: identityTokens{"cust": "u-cust", "emp": "u-emp", "mgr": "u-mgr"},
		Roles: identityRoles{
			"u-cust": {Name: "customer", Permissions: []roles.Permission{
				{Resource: "workorders", Action: "create"}, {Resource: "workorders", Action: "read"}}},
			"u-emp": {Name: "employee", Permissions: []roles.Permission{
				{Resource: "workorders", Action: "read"}, {Resource: "workorders", Action: "update"},
				{Resource: "workorders", Action: "delete"}}},
			"u-mgr": {Name: "manager", Permissions: []roles.Permission{{Resource: "workorders", Action: "*"}}},
		},
	}
	h := NewHandler(nil, NewService(WorkOrders, repo), mw)
	r := chi.NewRouter()
	r.Route("/workorders", func(r chi.Router) {
		r.Use(mw.Authenticate)
		h.MountRoutes(r)
	})
	return r, repo
}

func call(h http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestWorkOrderLifecycle(t *testing.T) {
	h, repo := newWorkOrderRouter(t)

	res := call(h, http.MethodPost, "/workorders/", "cust", `{"title":" Fix boiler ","customerId":"u-cust"}`)
	require.Equal(t, http.StatusCreated, res.Code, res.Body.String())
	var created Item
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &created))
	assert.Equal(t, "Fix boiler", created.Title)
	assert.Equal(t, StatusOpen, created.Status)
	assert.Equal(t, "u-cust", created.CreatedBy)

	assert.Equal(t, http.StatusForbidden,
		call(h, http.MethodPut, "/workorders/"+created.ID, "cust", `{"title":"Fix boiler","status":"done"}`).Code)

	res = call(h, http.MethodPut, "/workorders/"+created.ID, "emp", `{"title":"Fix boiler","status":"in_progress","assigneeId":"u-emp"}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())
	assert.Equal(t, StatusInProgress, repo.items[created.ID].Status)

	assert.Equal(t, http.StatusBadRequest,
		call(h, http.MethodPut, "/workorders/"+created.ID, "emp", `{"title":"Fix boiler","status":"paused"}`).Code)

	// employee holds the delete pair but is outside the allow-list
	assert.Equal(t, http.StatusForbidden, call(h, http.MethodDelete, "/workorders/"+created.ID, "emp", "").Code)
	assert.Equal(t, http.StatusNoContent, call(h, http.MethodDelete, "/workorders/"+created.ID, "mgr", "").Code)
	assert.Equal(t, http.StatusNotFound, call(h, http.MethodGet, "/workorders/"+created.ID, "cust", "").Code)
}

func TestWorkOrderListRequiresRead(t *testing.T) {
	h, _ := newWorkOrderRouter(t)

	res := call(h, http.MethodGet, "/workorders/", "cust", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"items":[]}`, res.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call(h, http.MethodGet, "/workorders/", "nobody", "").Code)
}
