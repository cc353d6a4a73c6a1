package roles

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/taskdesk/taskdesk/internal/shared"
)

// RepositoryPort defines data access methods for roles and the catalog.
type RepositoryPort interface {
	InsertRole(ctx context.Context, role Role) (Role, error)
	AppendPermissions(ctx context.Context, roleID string, perms []Permission) error
	RoleByName(ctx context.Context, name string) (Role, error)
	RoleByID(ctx context.Context, id string) (Role, error)
	ListRoles(ctx context.Context) ([]Role, error)
	DeleteRole(ctx context.Context, id string) error
	CatalogEntryByName(ctx context.Context, name string) (CatalogEntry, error)
	InsertCatalogEntry(ctx context.Context, entry CatalogEntry) (CatalogEntry, error)
	ListCatalog(ctx context.Context) ([]CatalogEntry, error)
}

// Service handles role and permission catalog logic.
type Service struct {
	repo  RepositoryPort
	newID func() string
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, newID: uuid.NewString}
}

// CreateRole stores a new role and returns its id.
func (s *Service) CreateRole(ctx context.Context, name string, canAssign []string, perms []Permission) (string, error) {
	name = NormalizeName(name)
	if name == "" {
		return "", fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	cleaned, err := validatePermissions(perms)
	if err != nil {
		return "", err
	}
	assignable := make([]string, 0, len(canAssign))
	seen := make(map[string]struct{}, len(canAssign))
	for _, n := range canAssign {
		n = NormalizeName(n)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		assignable = append(assignable, n)
	}
	role, err := s.repo.InsertRole(ctx, Role{
		ID:          s.newID(),
		Name:        name,
		CanAssign:   assignable,
		Permissions: cleaned,
	})
	if err != nil {
		return "", err
	}
	return role.ID, nil
}

// AddPermissions appends the pairs the role does not already hold. Either
// all new pairs are stored or none are.
func (s *Service) AddPermissions(ctx context.Context, roleID string, perms []Permission) error {
	if strings.TrimSpace(roleID) == "" {
		return fmt.Errorf("%w: role id required", shared.ErrValidation)
	}
	cleaned, err := validatePermissions(perms)
	if err != nil {
		return err
	}
	if len(cleaned) == 0 {
		_, err := s.repo.RoleByID(ctx, roleID)
		return err
	}
	return s.repo.AppendPermissions(ctx, roleID, cleaned)
}

// FindRoleByName returns the role with the given name.
func (s *Service) FindRoleByName(ctx context.Context, name string) (Role, error) {
	return s.repo.RoleByName(ctx, NormalizeName(name))
}

// FindRoleByID returns the role with the given id.
func (s *Service) FindRoleByID(ctx context.Context, id string) (Role, error) {
	return s.repo.RoleByID(ctx, id)
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// DeleteRole removes an unreferenced role.
func (s *Service) DeleteRole(ctx context.Context, id string) error {
	return s.repo.DeleteRole(ctx, id)
}

// EnsureCatalogEntry returns the catalog entry for name, creating it when
// absent. The boolean reports whether it was created.
func (s *Service) EnsureCatalogEntry(ctx context.Context, name, description string) (CatalogEntry, bool, error) {
	perm, err := ParsePermission(name)
	if err != nil {
		return CatalogEntry{}, false, err
	}
	name = perm.Name()
	entry, err := s.repo.CatalogEntryByName(ctx, name)
	if err == nil {
		return entry, false, nil
	}
	if !errors.Is(err, ErrCatalogEntryNotFound) {
		return CatalogEntry{}, false, err
	}
	entry, err = s.repo.InsertCatalogEntry(ctx, CatalogEntry{
		ID:          s.newID(),
		Name:        name,
		Resource:    perm.Resource,
		Action:      perm.Action,
		Description: strings.TrimSpace(description),
	})
	if errors.Is(err, ErrDuplicatePermission) {
		// lost a race with another writer
		entry, err = s.repo.CatalogEntryByName(ctx, name)
		return entry, false, err
	}
	if err != nil {
		return CatalogEntry{}, false, err
	}
	return entry, true, nil
}

// ResolveCatalog maps permission names to pairs through the catalog.
func (s *Service) ResolveCatalog(ctx context.Context, names []string) ([]Permission, error) {
	perms := make([]Permission, 0, len(names))
	for _, name := range names {
		perm, err := ParsePermission(name)
		if err != nil {
			return nil, err
		}
		entry, err := s.repo.CatalogEntryByName(ctx, perm.Name())
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", perm.Name(), err)
		}
		perms = append(perms, entry.Permission())
	}
	return dedupe(perms), nil
}

// ListCatalog returns every catalog entry.
func (s *Service) ListCatalog(ctx context.Context) ([]CatalogEntry, error) {
	return s.repo.ListCatalog(ctx)
}

func validatePermissions(perms []Permission) ([]Permission, error) {
	cleaned := make([]Permission, 0, len(perms))
	for _, p := range perms {
		p = Permission{Resource: strings.TrimSpace(p.Resource), Action: strings.TrimSpace(p.Action)}
		if p.Resource == "" || p.Action == "" {
			return nil, fmt.Errorf("%w: resource and action are required", ErrInvalidPermission)
		}
		cleaned = append(cleaned, p)
	}
	return dedupe(cleaned), nil
}
