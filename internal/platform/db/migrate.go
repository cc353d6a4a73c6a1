package db

import (
	"context"
	"fmt"
)

// schema is applied statement by statement; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS permission_catalog (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		resource    TEXT NOT NULL,
		action      TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT permission_catalog_name_key UNIQUE (name)
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		can_assign  JSONB NOT NULL DEFAULT '[]'::jsonb,
		permissions JSONB NOT NULL DEFAULT '[]'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT roles_name_key UNIQUE (name)
	)`,
	`CREATE TABLE IF NOT EXISTS identities (
		id                   TEXT PRIMARY KEY,
		username             TEXT NOT NULL,
		email                TEXT NOT NULL,
		password_hash        TEXT NOT NULL,
		security_question    TEXT NOT NULL,
		security_answer_hash TEXT NOT NULL,
		role_id              TEXT NOT NULL REFERENCES roles (id) ON DELETE RESTRICT,
		created_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		CONSTRAINT identities_username_key UNIQUE (username),
		CONSTRAINT identities_email_key UNIQUE (email)
	)`,
	`CREATE INDEX IF NOT EXISTS identities_role_id_idx ON identities (role_id)`,
	`CREATE TABLE IF NOT EXISTS profiles (
		identity_id TEXT PRIMARY KEY REFERENCES identities (id) ON DELETE CASCADE,
		doc         JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		id         TEXT PRIMARY KEY,
		doc        JSONB NOT NULL,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS workorders (
		id         TEXT PRIMARY KEY,
		doc        JSONB NOT NULL,
		created_by TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id          TEXT PRIMARY KEY,
		actor_id    TEXT NOT NULL DEFAULT '',
		action      TEXT NOT NULL,
		entity      TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		meta        JSONB,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate creates the schema if it does not exist yet.
func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range schema {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("platform/db: migrate step %d: %w", i, err)
		}
	}
	return nil
}
