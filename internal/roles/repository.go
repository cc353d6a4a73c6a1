package roles

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskdesk/taskdesk/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for roles and the
// permission catalog. Permission pairs and CanAssign lists live in JSONB
// columns on the role row.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, name, can_assign, permissions, created_at, updated_at`

// InsertRole stores a new role. The unique index on name reports duplicates.
func (r *Repository) InsertRole(ctx context.Context, role Role) (Role, error) {
	canAssign, err := json.Marshal(nonNil(role.CanAssign))
	if err != nil {
		return Role{}, fmt.Errorf("roles: encode can_assign: %w", err)
	}
	perms, err := json.Marshal(nonNilPerms(role.Permissions))
	if err != nil {
		return Role{}, fmt.Errorf("roles: encode permissions: %w", err)
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO roles (id, name, can_assign, permissions)
VALUES ($1, $2, $3::jsonb, $4::jsonb)
RETURNING `+roleColumns, role.ID, role.Name, string(canAssign), string(perms))
	created, err := scanRole(row)
	if err != nil {
		if constraint, ok := db.UniqueViolation(err); ok && constraint == "roles_name_key" {
			return Role{}, ErrDuplicateRoleName
		}
		return Role{}, db.Unavailable(err)
	}
	return created, nil
}

// AppendPermissions adds the pairs the role does not hold yet in a single
// row update.
func (r *Repository) AppendPermissions(ctx context.Context, roleID string, perms []Permission) error {
	payload, err := json.Marshal(nonNilPerms(perms))
	if err != nil {
		return fmt.Errorf("roles: encode permissions: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `UPDATE roles
SET permissions = permissions || COALESCE((
		SELECT jsonb_agg(p)
		FROM jsonb_array_elements($2::jsonb) AS p
		WHERE NOT roles.permissions @> jsonb_build_array(p)
	), '[]'::jsonb),
	updated_at = NOW()
WHERE id = $1`, roleID, string(payload))
	if err != nil {
		return db.Unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// RoleByName loads a role by its unique name.
func (r *Repository) RoleByName(ctx context.Context, name string) (Role, error) {
	return r.oneRole(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name)
}

// RoleByID loads a role by id.
func (r *Repository) RoleByID(ctx context.Context, id string) (Role, error) {
	return r.oneRole(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id)
}

func (r *Repository) oneRole(ctx context.Context, query string, arg string) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if db.IsNoRows(err) {
			return Role{}, ErrRoleNotFound
		}
		return Role{}, db.Unavailable(err)
	}
	return role, nil
}

// ListRoles returns all roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, db.Unavailable(err)
	}
	defer rows.Close()
	var out []Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, role)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Unavailable(err)
	}
	return out, nil
}

// DeleteRole removes a role unless an identity still references it.
func (r *Repository) DeleteRole(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles
WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM identities WHERE role_id = $1)`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrRoleInUse
		}
		return db.Unavailable(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	if _, err := r.RoleByID(ctx, id); err != nil {
		return err
	}
	return ErrRoleInUse
}

const catalogColumns = `id, name, resource, action, description, created_at`

// CatalogEntryByName loads a catalog entry by its unique name.
func (r *Repository) CatalogEntryByName(ctx context.Context, name string) (CatalogEntry, error) {
	entry, err := scanCatalogEntry(r.pool.QueryRow(ctx, `SELECT `+catalogColumns+` FROM permission_catalog WHERE name = $1`, name))
	if err != nil {
		if db.IsNoRows(err) {
			return CatalogEntry{}, ErrCatalogEntryNotFound
		}
		return CatalogEntry{}, db.Unavailable(err)
	}
	return entry, nil
}

// InsertCatalogEntry stores a new catalog entry. A concurrent insert of the
// same name surfaces as shared.ErrConflict.
func (r *Repository) InsertCatalogEntry(ctx context.Context, entry CatalogEntry) (CatalogEntry, error) {
	created, err := scanCatalogEntry(r.pool.QueryRow(ctx, `INSERT INTO permission_catalog (id, name, resource, action, description)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+catalogColumns, entry.ID, entry.Name, entry.Resource, entry.Action, entry.Description))
	if err != nil {
		if _, ok := db.UniqueViolation(err); ok {
			return CatalogEntry{}, ErrDuplicatePermission
		}
		return CatalogEntry{}, db.Unavailable(err)
	}
	return created, nil
}

// ListCatalog returns every catalog entry ordered by name.
func (r *Repository) ListCatalog(ctx context.Context) ([]CatalogEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+catalogColumns+` FROM permission_catalog ORDER BY name`)
	if err != nil {
		return nil, db.Unavailable(err)
	}
	defer rows.Close()
	var out []CatalogEntry
	for rows.Next() {
		entry, err := scanCatalogEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Unavailable(err)
	}
	return out, nil
}

func scanRole(row pgx.Row) (Role, error) {
	var (
		role      Role
		canAssign []byte
		perms     []byte
	)
	if err := row.Scan(&role.ID, &role.Name, &canAssign, &perms, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return Role{}, err
	}
	if err := json.Unmarshal(canAssign, &role.CanAssign); err != nil {
		return Role{}, fmt.Errorf("roles: decode can_assign: %w", err)
	}
	if err := json.Unmarshal(perms, &role.Permissions); err != nil {
		return Role{}, fmt.Errorf("roles: decode permissions: %w", err)
	}
	return role, nil
}

func scanCatalogEntry(row pgx.Row) (CatalogEntry, error) {
	var entry CatalogEntry
	err := row.Scan(&entry.ID, &entry.Name, &entry.Resource, &entry.Action, &entry.Description, &entry.CreatedAt)
	return entry, err
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func nonNilPerms(perms []Permission) []Permission {
	if perms == nil {
		return []Permission{}
	}
	return perms
}
