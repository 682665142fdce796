package accesskit

import (
	"context"
	"fmt"

	"github.com/fernandezvara/dbkit"
)

// Migrations returns the database migrations required by the store.
// The role and permission tables follow the store's model bindings.
func (s *Store) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "accesskit-001",
			Description: "Create roles table",
			SQL: fmt.Sprintf(`
                CREATE TABLE IF NOT EXISTS %s (
                    id BIGSERIAL PRIMARY KEY,
                    name TEXT NOT NULL,
                    slug TEXT NOT NULL UNIQUE,
                    description TEXT,
                    level INTEGER NOT NULL DEFAULT 1,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`, s.models.Role),
		},
		{
			ID:          "accesskit-002",
			Description: "Create permissions table",
			SQL: fmt.Sprintf(`
                CREATE TABLE IF NOT EXISTS %s (
                    id BIGSERIAL PRIMARY KEY,
                    name TEXT NOT NULL,
                    slug TEXT NOT NULL UNIQUE,
                    description TEXT,
                    model TEXT,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`, s.models.Permission),
		},
		{
			ID:          "accesskit-003",
			Description: "Create role_user table",
			SQL: fmt.Sprintf(`
                CREATE TABLE IF NOT EXISTS role_user (
                    role_id BIGINT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
                    user_id BIGINT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    PRIMARY KEY (role_id, user_id)
                );
                CREATE INDEX IF NOT EXISTS role_user_user_id_idx ON role_user (user_id)`, s.models.Role),
		},
		{
			ID:          "accesskit-004",
			Description: "Create permission_user table",
			SQL: fmt.Sprintf(`
                CREATE TABLE IF NOT EXISTS permission_user (
                    permission_id BIGINT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
                    user_id BIGINT NOT NULL,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    PRIMARY KEY (permission_id, user_id)
                );
                CREATE INDEX IF NOT EXISTS permission_user_user_id_idx ON permission_user (user_id)`, s.models.Permission),
		},
		{
			ID:          "accesskit-005",
			Description: "Create permission_role table",
			SQL: fmt.Sprintf(`
                CREATE TABLE IF NOT EXISTS permission_role (
                    permission_id BIGINT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
                    role_id BIGINT NOT NULL REFERENCES %s (id) ON DELETE CASCADE,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    PRIMARY KEY (permission_id, role_id)
                );
                CREATE INDEX IF NOT EXISTS permission_role_role_id_idx ON permission_role (role_id)`, s.models.Permission, s.models.Role),
		},
	}
}

// Migrate applies the pending migrations. It requires the store to be
// backed by a *dbkit.DBKit.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.models.ValidateRole(); err != nil {
		return err
	}
	if err := s.models.ValidatePermission(); err != nil {
		return err
	}

	db, ok := s.db.(*dbkit.DBKit)
	if !ok {
		return NewError(ErrDatabaseError, "migrations require a dbkit.DBKit instance")
	}
	_, err := db.Migrate(ctx, s.Migrations())
	return err
}
