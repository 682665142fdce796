package accesskit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// ListRoles returns the roles held by a user, ordered by ID.
func (s *Store) ListRoles(ctx context.Context, userID int64) ([]Role, error) {
	var roles []Role
	err := s.selectRoles(&roles).
		Join("JOIN role_user AS ru ON ru.role_id = r.id").
		Where("ru.user_id = ?", userID).
		Order("r.id ASC").
		Scan(ctx)
	if err = dbkit.WithErr1(err, "ListRoles").Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// AttachRole links a role to a user. Attaching a role the user already
// holds is a no-op.
func (s *Store) AttachRole(ctx context.Context, userID, roleID int64, at time.Time) error {
	link := &RoleUser{
		RoleID:    roleID,
		UserID:    userID,
		CreatedAt: at,
		UpdatedAt: at,
	}
	result, err := s.db.NewInsert().
		Model(link).
		On("CONFLICT (role_id, user_id) DO NOTHING").
		Exec(ctx)
	return dbkit.WithErr(result, err, "AttachRole").Err()
}

// DetachRole unlinks a role from a user and returns the rows removed.
func (s *Store) DetachRole(ctx context.Context, userID, roleID int64) (int64, error) {
	result, err := s.db.NewDelete().Table("role_user").
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Exec(ctx)
	if err = dbkit.WithErr(result, err, "DetachRole").Err(); err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DetachAllRoles unlinks every role from a user and returns the rows removed.
func (s *Store) DetachAllRoles(ctx context.Context, userID int64) (int64, error) {
	result, err := s.db.NewDelete().Table("role_user").
		Where("user_id = ?", userID).
		Exec(ctx)
	if err = dbkit.WithErr(result, err, "DetachAllRoles").Err(); err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountUserRoles returns the number of roles a user holds.
// This is cheaper than ListRoles when only the count is needed.
func (s *Store) CountUserRoles(ctx context.Context, userID int64) (int, error) {
	var count int
	err := s.db.NewRaw("SELECT count(*) FROM role_user WHERE user_id = ?", userID).Scan(ctx, &count)
	if err = dbkit.WithErr1(err, "CountUserRoles").Err(); err != nil {
		return 0, err
	}
	return count, nil
}

// UsersWithRole returns the IDs of the users holding a role.
func (s *Store) UsersWithRole(ctx context.Context, roleID int64) ([]int64, error) {
	var ids []int64
	err := s.db.NewRaw("SELECT user_id FROM role_user WHERE role_id = ? ORDER BY user_id", roleID).Scan(ctx, &ids)
	if err = dbkit.WithErr1(err, "UsersWithRole").Err(); err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return ids, nil
}
