package users

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskdesk/taskdesk/internal/platform/db"
	"github.com/taskdesk/taskdesk/internal/roles"
)

// Repository provides PostgreSQL backed persistence for identities and
// their profile documents.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const identityColumns = `id, username, email, password_hash, security_question, security_answer_hash, role_id, created_at, updated_at`

// CreateWithProfile inserts the identity and its profile in one transaction.
func (r *Repository) CreateWithProfile(ctx context.Context, identity Identity, profile Profile) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("users: encode profile: %w", err)
	}
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO identities (`+identityColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`,
			identity.ID, identity.Username, identity.Email, identity.PasswordHash,
			identity.SecurityQuestion, identity.SecurityAnswerHash, identity.RoleID); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `INSERT INTO profiles (identity_id, doc) VALUES ($1, $2::jsonb)`, identity.ID, string(doc))
		return err
	})
	if err != nil {
		return mapWriteError(err)
	}
	return nil
}

// ByUsername loads an identity by username.
func (r *Repository) ByUsername(ctx context.Context, username string) (Identity, error) {
	return r.one(ctx, `SELECT `+identityColumns+` FROM identities WHERE username = $1`, username)
}

// ByEmail loads an identity by email.
func (r *Repository) ByEmail(ctx context.Context, email string) (Identity, error) {
	return r.one(ctx, `SELECT `+identityColumns+` FROM identities WHERE email = $1`, email)
}

// ByID loads an identity by id.
func (r *Repository) ByID(ctx context.Context, id string) (Identity, error) {
	return r.one(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
}

// List returns identities ordered by username.
func (r *Repository) List(ctx context.Context) ([]Identity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY username`)
	if err != nil {
		return nil, db.Unavailable(err)
	}
	defer rows.Close()
	var out []Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Unavailable(err)
	}
	return out, nil
}

// UpdatePassword replaces the password hash.
func (r *Repository) UpdatePassword(ctx context.Context, id, hash string) error {
	return r.exec(ctx, `UPDATE identities SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
}

// UpdateRole points the identity at another role.
func (r *Repository) UpdateRole(ctx context.Context, id, roleID string) error {
	err := r.exec(ctx, `UPDATE identities SET role_id = $2, updated_at = NOW() WHERE id = $1`, id, roleID)
	if db.IsForeignKeyViolation(err) {
		return roles.ErrRoleNotFound
	}
	return err
}

// Delete removes the identity; its profile is removed by cascade.
func (r *Repository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
}

// Profile loads the profile document of an identity.
func (r *Repository) Profile(ctx context.Context, identityID string) (Profile, error) {
	var (
		doc       []byte
		profile   Profile
		updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx, `SELECT doc, updated_at FROM profiles WHERE identity_id = $1`, identityID).
		Scan(&doc, &updatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return Profile{}, ErrIdentityNotFound
		}
		return Profile{}, db.Unavailable(err)
	}
	if err := json.Unmarshal(doc, &profile); err != nil {
		return Profile{}, fmt.Errorf("users: decode profile: %w", err)
	}
	profile.IdentityID = identityID
	profile.UpdatedAt = updatedAt
	return profile, nil
}

// SaveProfile replaces the profile document of an identity.
func (r *Repository) SaveProfile(ctx context.Context, profile Profile) error {
	doc, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("users: encode profile: %w", err)
	}
	return r.exec(ctx, `UPDATE profiles SET doc = $2::jsonb, updated_at = NOW() WHERE identity_id = $1`, profile.IdentityID, string(doc))
}

func (r *Repository) one(ctx context.Context, query, arg string) (Identity, error) {
	identity, err := scanIdentity(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if db.IsNoRows(err) {
			return Identity{}, ErrIdentityNotFound
		}
		return Identity{}, db.Unavailable(err)
	}
	return identity, nil
}

func (r *Repository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return err
		}
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrIdentityNotFound
	}
	return nil
}

func scanIdentity(row pgx.Row) (Identity, error) {
	var i Identity
	err := row.Scan(&i.ID, &i.Username, &i.Email, &i.PasswordHash, &i.SecurityQuestion,
		&i.SecurityAnswerHash, &i.RoleID, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func mapWriteError(err error) error {
	if constraint, ok := db.UniqueViolation(err); ok {
		switch constraint {
		case "identities_username_key":
			return ErrDuplicateUsername
		case "identities_email_key":
			return ErrDuplicateEmail
		}
	}
	if db.IsForeignKeyViolation(err) {
		return roles.ErrRoleNotFound
	}
	return db.Unavailable(err)
}
