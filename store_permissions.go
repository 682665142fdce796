package accesskit

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ListUserPermissions returns the permissions granted directly to a user.
func (s *Store) ListUserPermissions(ctx context.Context, userID int64) ([]Permission, error) {
	var perms []Permission
	err := s.selectPermissions(&perms).
		Join("JOIN permission_user AS pu ON pu.permission_id = p.id").
		Where("pu.user_id = ?", userID).
		Order("p.id ASC").
		Scan(ctx)
	if err = dbkit.WithErr1(err, "ListUserPermissions").Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// ListRolePermissions returns the distinct permissions attached to any of
// roleIDs or to any role whose level is strictly below belowLevel.
func (s *Store) ListRolePermissions(ctx context.Context, roleIDs []int64, belowLevel int) ([]Permission, error) {
	var perms []Permission
	err := s.selectPermissions(&perms).
		Distinct().
		Join("JOIN permission_role AS pr ON pr.permission_id = p.id").
		Join("JOIN ? AS r ON r.id = pr.role_id", s.roleTable()).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			if len(roleIDs) > 0 {
				q = q.WhereOr("r.id IN (?)", bun.In(roleIDs))
			}
			return q.WhereOr("r.level < ?", belowLevel)
		}).
		Order("p.id ASC").
		Scan(ctx)
	if err = dbkit.WithErr1(err, "ListRolePermissions").Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// AttachPermission grants a permission directly to a user. Granting a
// permission twice is a no-op.
func (s *Store) AttachPermission(ctx context.Context, userID, permissionID int64, at time.Time) error {
	link := &PermissionUser{
		PermissionID: permissionID,
		UserID:       userID,
		CreatedAt:    at,
		UpdatedAt:    at,
	}
	result, err := s.db.NewInsert().
		Model(link).
		On("CONFLICT (permission_id, user_id) DO NOTHING").
		Exec(ctx)
	return dbkit.WithErr(result, err, "AttachPermission").Err()
}

// DetachPermission revokes a direct grant and returns the rows removed.
func (s *Store) DetachPermission(ctx context.Context, userID, permissionID int64) (int64, error) {
	result, err := s.db.NewDelete().Table("permission_user").
		Where("user_id = ? AND permission_id = ?", userID, permissionID).
		Exec(ctx)
	if err = dbkit.WithErr(result, err, "DetachPermission").Err(); err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DetachAllPermissions revokes every direct grant of a user.
func (s *Store) DetachAllPermissions(ctx context.Context, userID int64) (int64, error) {
	result, err := s.db.NewDelete().Table("permission_user").
		Where("user_id = ?", userID).
		Exec(ctx)
	if err = dbkit.WithErr(result, err, "DetachAllPermissions").Err(); err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
