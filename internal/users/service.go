package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/taskdesk/taskdesk/internal/rbac"
	"github.com/taskdesk/taskdesk/internal/roles"
	"github.com/taskdesk/taskdesk/internal/shared"
)

// RepositoryPort defines data access methods for identities.
type RepositoryPort interface {
	ByID(ctx context.Context, id string) (Identity, error)
	List(ctx context.Context) ([]Identity, error)
	UpdateRole(ctx context.Context, id, roleID string) error
	Delete(ctx context.Context, id string) error
	Profile(ctx context.Context, identityID string) (Profile, error)
	SaveProfile(ctx context.Context, profile Profile) error
}

// RoleFinder looks roles up in the catalog.
type RoleFinder interface {
	FindRoleByID(ctx context.Context, id string) (roles.Role, error)
	FindRoleByName(ctx context.Context, name string) (roles.Role, error)
}

// Service handles identity management.
type Service struct {
	repo  RepositoryPort
	roles RoleFinder
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roleFinder RoleFinder) *Service {
	return &Service{repo: repo, roles: roleFinder}
}

// RoleForIdentity returns the current role of an identity.
func (s *Service) RoleForIdentity(ctx context.Context, identityID string) (roles.Role, error) {
	identity, err := s.repo.ByID(ctx, identityID)
	if err != nil {
		return roles.Role{}, err
	}
	role, err := s.roles.FindRoleByID(ctx, identity.RoleID)
	if err != nil {
		return roles.Role{}, fmt.Errorf("role of %s: %w", identityID, err)
	}
	return role, nil
}

// Account returns the public view of an identity, optionally with its profile.
func (s *Service) Account(ctx context.Context, id string, withProfile bool) (Account, error) {
	identity, err := s.repo.ByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	account := Account{Identity: identity}
	if role, err := s.roles.FindRoleByID(ctx, identity.RoleID); err == nil {
		account.RoleName = role.Name
	} else if !errors.Is(err, shared.ErrNotFound) {
		return Account{}, err
	}
	if withProfile {
		profile, err := s.repo.Profile(ctx, id)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return Account{}, err
		}
		if err == nil {
			account.Profile = &profile
		}
	}
	return account, nil
}

// List returns every identity.
func (s *Service) List(ctx context.Context) ([]Identity, error) {
	return s.repo.List(ctx)
}

// AssignRole moves target to the role named roleName. The caller's role
// must be allowed to assign both roleName and the target's current role, so
// a manager cannot demote an admin or another manager.
func (s *Service) AssignRole(ctx context.Context, callerRoleID, targetID, roleName string) (roles.Role, error) {
	roleName = roles.NormalizeName(roleName)
	if roleName == "" {
		return roles.Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	callerRole, err := s.roles.FindRoleByID(ctx, callerRoleID)
	if err != nil {
		return roles.Role{}, err
	}
	if !rbac.CanAssignRole(callerRole, roleName) {
		return roles.Role{}, fmt.Errorf("%w: role %s cannot assign %s", rbac.ErrForbidden, callerRole.Name, roleName)
	}
	identity, err := s.repo.ByID(ctx, targetID)
	if err != nil {
		return roles.Role{}, err
	}
	current, err := s.roles.FindRoleByID(ctx, identity.RoleID)
	switch {
	case err == nil:
		if !rbac.CanAssignRole(callerRole, current.Name) {
			return roles.Role{}, fmt.Errorf("%w: role %s cannot reassign holders of %s", rbac.ErrForbidden, callerRole.Name, current.Name)
		}
	case !errors.Is(err, shared.ErrNotFound):
		return roles.Role{}, err
	}
	target, err := s.roles.FindRoleByName(ctx, roleName)
	if err != nil {
		return roles.Role{}, err
	}
	if err := s.repo.UpdateRole(ctx, targetID, target.ID); err != nil {
		return roles.Role{}, err
	}
	return target, nil
}

// Delete removes an identity and its profile.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// ProfileInput carries profile changes. Nil fields are left unchanged.
type ProfileInput struct {
	DisplayName *string
	Phone       *string
	Address     *string
}

// UpdateProfile applies input to the identity's profile.
func (s *Service) UpdateProfile(ctx context.Context, identityID string, input ProfileInput) (Profile, error) {
	profile, err := s.repo.Profile(ctx, identityID)
	if err != nil {
		return Profile{}, err
	}
	if input.DisplayName != nil {
		profile.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.Phone != nil {
		profile.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		profile.Address = strings.TrimSpace(*input.Address)
	}
	if err := s.repo.SaveProfile(ctx, profile); err != nil {
		return Profile{}, err
	}
	return profile, nil
}
