package roles

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskdesk/taskdesk/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	roles    map[string]Role
	catalog  map[string]CatalogEntry
	inUse    map[string]bool
	failNext error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{roles: map[string]Role{}, catalog: map[string]CatalogEntry{}, inUse: map[string]bool{}}
}

func (m *memoryRepo) InsertRole(_ context.Context, role Role) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.roles {
		if existing.Name == role.Name {
			return Role{}, ErrDuplicateRoleName
		}
	}
	m.roles[role.ID] = role
	return role, nil
}

func (m *memoryRepo) AppendPermissions(_ context.Context, roleID string, perms []Permission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	role, ok := m.roles[roleID]
	if !ok {
		return ErrRoleNotFound
	}
	role.Permissions = dedupe(append(append([]Permission{}, role.Permissions...), perms...))
	m.roles[roleID] = role
	return nil
}

func (m *memoryRepo) RoleByName(_ context.Context, name string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, role := range m.roles {
		if role.Name == name {
			return role, nil
		}
	}
	return Role{}, ErrRoleNotFound
}

func (m *memoryRepo) RoleByID(_ context.Context, id string) (Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	role, ok := m.roles[id]
	if !ok {
		return Role{}, ErrRoleNotFound
	}
	return role, nil
}

func (m *memoryRepo) ListRoles(_ context.Context) ([]Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Role, 0, len(m.roles))
	for _, role := range m.roles {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryRepo) DeleteRole(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.roles[id]; !ok {
		return ErrRoleNotFound
	}
	if m.inUse[id] {
		return ErrRoleInUse
	}
	delete(m.roles, id)
	return nil
}

func (m *memoryRepo) CatalogEntryByName(_ context.Context, name string) (CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.catalog[name]
	if !ok {
		return CatalogEntry{}, ErrCatalogEntryNotFound
	}
	return entry, nil
}

func (m *memoryRepo) InsertCatalogEntry(_ context.Context, entry CatalogEntry) (CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.catalog[entry.Name]; ok {
		return CatalogEntry{}, ErrDuplicatePermission
	}
	m.catalog[entry.Name] = entry
	return entry, nil
}

func (m *memoryRepo) ListCatalog(_ context.Context) ([]CatalogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]CatalogEntry, 0, len(m.catalog))
	for _, entry := range m.catalog {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func newTestService(repo RepositoryPort) *Service {
	svc := NewService(repo)
	n := 0
	svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	return svc
}

func TestCreateRoleNormalizesAndRejectsDuplicates(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	id, err := svc.CreateRole(ctx, "  Manager ", []string{"Employee", "employee", " "}, []Permission{
		{Resource: "tasks", Action: "read"},
		{Resource: "tasks", Action: "read"},
	})
	require.NoError(t, err)

	role, err := svc.FindRoleByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "manager", role.Name)
	assert.Equal(t, []string{"employee"}, role.CanAssign)
	assert.Equal(t, []Permission{{Resource: "tasks", Action: "read"}}, role.Permissions)

	_, err = svc.CreateRole(ctx, "manager", nil, nil)
	require.ErrorIs(t, err, ErrDuplicateRoleName)
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestCreateRoleValidation(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.CreateRole(context.Background(), " ", nil, nil)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.CreateRole(context.Background(), "auditor", nil, []Permission{{Resource: "tasks"}})
	require.ErrorIs(t, err, ErrInvalidPermission)
}

func TestAddPermissionsIsSetLevelIdempotent(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()
	id, err := svc.CreateRole(ctx, "employee", nil, []Permission{{Resource: "tasks", Action: "read"}})
	require.NoError(t, err)

	add := []Permission{{Resource: "tasks", Action: "read"}, {Resource: "tasks", Action: "update"}}
	require.NoError(t, svc.AddPermissions(ctx, id, add))
	require.NoError(t, svc.AddPermissions(ctx, id, add))

	role, err := svc.FindRoleByID(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Permission{
		{Resource: "tasks", Action: "read"},
		{Resource: "tasks", Action: "update"},
	}, role.Permissions)
}

func TestAddPermissionsFailureLeavesRoleUnchanged(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id, err := svc.CreateRole(ctx, "employee", nil, []Permission{{Resource: "tasks", Action: "read"}})
	require.NoError(t, err)

	repo.failNext = errors.New("write failed")
	err = svc.AddPermissions(ctx, id, []Permission{{Resource: "workorders", Action: "read"}})
	require.Error(t, err)

	role, err := svc.FindRoleByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []Permission{{Resource: "tasks", Action: "read"}}, role.Permissions)
}

func TestAddPermissionsUnknownRole(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	err := svc.AddPermissions(context.Background(), "missing", []Permission{{Resource: "tasks", Action: "read"}})
	require.ErrorIs(t, err, shared.ErrNotFound)

	err = svc.AddPermissions(context.Background(), "missing", nil)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFindRoleByNameNotFound(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.FindRoleByName(context.Background(), "ghost")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteRoleRefusedWhileReferenced(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()
	id, err := svc.CreateRole(ctx, "customer", nil, nil)
	require.NoError(t, err)

	repo.inUse[id] = true
	require.ErrorIs(t, svc.DeleteRole(ctx, id), ErrRoleInUse)

	repo.inUse[id] = false
	require.NoError(t, svc.DeleteRole(ctx, id))
	_, err = svc.FindRoleByID(ctx, id)
	require.ErrorIs(t, err, ErrRoleNotFound)
}

func TestEnsureCatalogEntryIsLookupOrCreate(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	first, created, err := svc.EnsureCatalogEntry(ctx, " tasks : read ", "Read tasks")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "tasks:read", first.Name)

	second, created, err := svc.EnsureCatalogEntry(ctx, "tasks:read", "ignored")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	entries, err := svc.ListCatalog(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEnsureCatalogEntryRejectsMalformedName(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, _, err := svc.EnsureCatalogEntry(context.Background(), "tasks", "")
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestResolveCatalog(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()
	for _, name := range []string{"tasks:read", "*:*"} {
		_, _, err := svc.EnsureCatalogEntry(ctx, name, "")
		require.NoError(t, err)
	}

	perms, err := svc.ResolveCatalog(ctx, []string{"tasks:read", "*:*", "tasks:read"})
	require.NoError(t, err)
	assert.Equal(t, []Permission{{Resource: "tasks", Action: "read"}, {Resource: "*", Action: "*"}}, perms)

	_, err = svc.ResolveCatalog(ctx, []string{"tasks:delete"})
	require.ErrorIs(t, err, ErrCatalogEntryNotFound)
}

func TestPermissionMatching(t *testing.T) {
	cases := []struct {
		perm     Permission
		resource string
		action   string
		want     bool
	}{
		{Permission{"tasks", "read"}, "tasks", "read", true},
		{Permission{"tasks", "read"}, "tasks", "update", false},
		{Permission{"tasks", "*"}, "tasks", "delete", true},
		{Permission{"*", "read"}, "workorders", "read", true},
		{Permission{"*", "*"}, "anything", "goes", true},
		{Permission{"workorders", "read"}, "tasks", "read", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.perm.Matches(tc.resource, tc.action), "%s on %s:%s", tc.perm.Name(), tc.resource, tc.action)
	}
}
