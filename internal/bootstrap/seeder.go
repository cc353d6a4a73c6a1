// Package bootstrap seeds the permission catalog, the predefined roles and
// the administrator identity. Every step is lookup-or-create so the seeder
// can run on every start.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/taskdesk/taskdesk/internal/auth"
	"github.com/taskdesk/taskdesk/internal/roles"
	"github.com/taskdesk/taskdesk/internal/shared"
	"github.com/taskdesk/taskdesk/internal/users"
)

// Catalog is the role/permission store the seeder writes to.
type Catalog interface {
	EnsureCatalogEntry(ctx context.Context, name, description string) (roles.CatalogEntry, bool, error)
	ResolveCatalog(ctx context.Context, names []string) ([]roles.Permission, error)
	FindRoleByName(ctx context.Context, name string) (roles.Role, error)
	CreateRole(ctx context.Context, name string, canAssign []string, perms []roles.Permission) (string, error)
}

// Identities is the credential store the seeder writes to.
type Identities interface {
	ByEmail(ctx context.Context, email string) (users.Identity, error)
	CreateWithProfile(ctx context.Context, identity users.Identity, profile users.Profile) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Recorder observes seeded items.
type Recorder interface {
	ObserveSeedItem(kind, result string)
}

// AdminConfig describes the bootstrap administrator.
type AdminConfig struct {
	Username         string
	Email            string
	Password         string
	SecurityQuestion string
	SecurityAnswer   string
}

// Report summarises a run.
type Report struct {
	PermissionsCreated int  `json:"permissionsCreated"`
	RolesCreated       int  `json:"rolesCreated"`
	AdminCreated       bool `json:"adminCreated"`
	Failures           int  `json:"failures"`
}

// Seeder idempotently seeds the catalog, roles and admin identity.
type Seeder struct {
	catalog    Catalog
	identities Identities
	pinger     Pinger
	admin      AdminConfig
	logger     *slog.Logger
	metrics    Recorder
	newID      func() string
}

// NewSeeder builds a Seeder. metrics may be nil.
func NewSeeder(catalog Catalog, identities Identities, pinger Pinger, admin AdminConfig, logger *slog.Logger, metrics Recorder) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{
		catalog:    catalog,
		identities: identities,
		pinger:     pinger,
		admin:      admin,
		logger:     logger,
		metrics:    metrics,
		newID:      uuid.NewString,
	}
}

const (
	resultCreated  = "created"
	resultExisting = "existing"
	resultFailed   = "failed"
)

// Run seeds everything. Individual failures are logged and counted; a
// connectivity failure stops the run and is returned.
func (s *Seeder) Run(ctx context.Context) (Report, error) {
	var report Report
	if err := s.pinger.Ping(ctx); err != nil {
		return report, fmt.Errorf("%w: bootstrap: %v", shared.ErrUnavailable, err)
	}

	for _, p := range Permissions {
		_, created, err := s.catalog.EnsureCatalogEntry(ctx, p.Name, p.Description)
		if err := s.settle(&report, "permission", p.Name, created, err); err != nil {
			return report, err
		}
		if created {
			report.PermissionsCreated++
		}
	}

	for _, spec := range Roles {
		created, err := s.ensureRole(ctx, spec)
		if err := s.settle(&report, "role", spec.Name, created, err); err != nil {
			return report, err
		}
		if created {
			report.RolesCreated++
		}
	}

	created, err := s.ensureAdmin(ctx)
	if err := s.settle(&report, "admin", s.admin.Email, created, err); err != nil {
		return report, err
	}
	report.AdminCreated = created

	s.logger.Info("bootstrap complete",
		slog.Int("permissions_created", report.PermissionsCreated),
		slog.Int("roles_created", report.RolesCreated),
		slog.Bool("admin_created", report.AdminCreated),
		slog.Int("failures", report.Failures))
	return report, nil
}

// settle records the outcome of one item and returns err only when the run
// must stop.
func (s *Seeder) settle(report *Report, kind, name string, created bool, err error) error {
	result := resultExisting
	switch {
	case err != nil:
		result = resultFailed
	case created:
		result = resultCreated
	}
	if s.metrics != nil {
		s.metrics.ObserveSeedItem(kind, result)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, shared.ErrUnavailable) {
		s.logger.Error("bootstrap aborted", slog.String("kind", kind), slog.String("name", name), slog.Any("error", err))
		return fmt.Errorf("bootstrap %s %s: %w", kind, name, err)
	}
	report.Failures++
	s.logger.Warn("bootstrap item failed", slog.String("kind", kind), slog.String("name", name), slog.Any("error", err))
	return nil
}

func (s *Seeder) ensureRole(ctx context.Context, spec RoleSpec) (bool, error) {
	_, err := s.catalog.FindRoleByName(ctx, spec.Name)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return false, err
	}
	perms, err := s.catalog.ResolveCatalog(ctx, spec.Permissions)
	if err != nil {
		return false, err
	}
	if _, err := s.catalog.CreateRole(ctx, spec.Name, spec.CanAssign, perms); err != nil {
		if errors.Is(err, roles.ErrDuplicateRoleName) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Seeder) ensureAdmin(ctx context.Context) (bool, error) {
	email := users.NormalizeEmail(s.admin.Email)
	_, err := s.identities.ByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return false, err
	}
	adminRole, err := s.catalog.FindRoleByName(ctx, roles.AdminRoleName)
	if err != nil {
		return false, fmt.Errorf("admin role: %w", err)
	}
	passwordHash, err := auth.HashPassword(s.admin.Password)
	if err != nil {
		return false, err
	}
	answerHash, err := auth.HashAnswer(s.admin.SecurityAnswer)
	if err != nil {
		return false, err
	}
	identity := users.Identity{
		ID:                 s.newID(),
		Username:           users.NormalizeUsername(s.admin.Username),
		Email:              email,
		PasswordHash:       passwordHash,
		SecurityQuestion:   s.admin.SecurityQuestion,
		SecurityAnswerHash: answerHash,
		RoleID:             adminRole.ID,
	}
	if err := s.identities.CreateWithProfile(ctx, identity, users.Profile{IdentityID: identity.ID, DisplayName: "Administrator"}); err != nil {
		// a concurrent run created the same admin; any other clash leaves no admin
		if errors.Is(err, users.ErrDuplicateEmail) {
			return false, nil
		}
		return false, fmt.Errorf("create admin %q: %w", identity.Username, err)
	}
	s.logger.Info("bootstrap admin created", slog.String("email", email))
	return true, nil
}
