package accesskit

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// ROLES
// ============================================================================

// CreateRole validates and inserts a role, filling in its ID.
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	if err := ValidateRole(role); err != nil {
		return err
	}
	stampCreated(&role.CreatedAt, &role.UpdatedAt)

	result, err := s.db.NewInsert().
		Model(role).
		ModelTableExpr("?", s.roleTable()).
		Returning("id").
		Exec(ctx)
	if err = dbkit.WithErr(result, err, "CreateRole").Err(); err != nil {
		if dbkit.IsDuplicate(err) {
			return NewError(ErrInvalidRole, "role slug already exists").WithRole(role.Slug)
		}
		return err
	}
	return nil
}

// FindRoleBySlug returns the role with the given slug.
func (s *Store) FindRoleBySlug(ctx context.Context, slug string) (*Role, error) {
	var roles []Role
	err := s.selectRoles(&roles).Where("r.slug = ?", slug).Limit(1).Scan(ctx)
	if err = dbkit.WithErr1(err, "FindRoleBySlug").Err(); err != nil && !dbkit.IsNotFound(err) {
		return nil, err
	}
	if len(roles) == 0 {
		return nil, NewError(ErrNotFound, "role not found").WithRole(slug)
	}
	return &roles[0], nil
}

// FindRoles lists roles matching filter, ordered by level then slug.
func (s *Store) FindRoles(ctx context.Context, filter RoleFilter) ([]Role, error) {
	var roles []Role
	q := s.selectRoles(&roles)
	if filter.Slug != "" {
		q = q.Where("r.slug LIKE ?", likePattern(filter.Slug))
	}
	if filter.MinLevel != 0 {
		q = q.Where("r.level >= ?", filter.MinLevel)
	}
	if filter.MaxLevel != 0 {
		q = q.Where("r.level <= ?", filter.MaxLevel)
	}
	q = q.Order("r.level ASC", "r.slug ASC").Limit(pageLimit(filter.Limit))
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := dbkit.WithErr1(q.Scan(ctx), "FindRoles").Err(); err != nil {
		return nil, err
	}
	return roles, nil
}

// CountRoles returns the number of defined roles.
func (s *Store) CountRoles(ctx context.Context) (int, error) {
	var count int
	err := s.db.NewRaw("SELECT count(*) FROM ?", s.roleTable()).Scan(ctx, &count)
	if err = dbkit.WithErr1(err, "CountRoles").Err(); err != nil {
		return 0, err
	}
	return count, nil
}

// ============================================================================
// PERMISSIONS
// ============================================================================

// CreatePermission validates and inserts a permission, filling in its ID.
func (s *Store) CreatePermission(ctx context.Context, permission *Permission) error {
	if err := ValidatePermission(permission); err != nil {
		return err
	}
	stampCreated(&permission.CreatedAt, &permission.UpdatedAt)

	result, err := s.db.NewInsert().
		Model(permission).
		ModelTableExpr("?", s.permissionTable()).
		Returning("id").
		Exec(ctx)
	if err = dbkit.WithErr(result, err, "CreatePermission").Err(); err != nil {
		if dbkit.IsDuplicate(err) {
			return NewError(ErrInvalidPermission, "permission slug already exists").WithPermission(permission.Slug)
		}
		return err
	}
	return nil
}

// FindPermissionBySlug returns the permission with the given slug.
func (s *Store) FindPermissionBySlug(ctx context.Context, slug string) (*Permission, error) {
	var perms []Permission
	err := s.selectPermissions(&perms).Where("p.slug = ?", slug).Limit(1).Scan(ctx)
	if err = dbkit.WithErr1(err, "FindPermissionBySlug").Err(); err != nil && !dbkit.IsNotFound(err) {
		return nil, err
	}
	if len(perms) == 0 {
		return nil, NewError(ErrNotFound, "permission not found").WithPermission(slug)
	}
	return &perms[0], nil
}

// FindPermissions lists permissions matching filter, ordered by slug.
func (s *Store) FindPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, error) {
	var perms []Permission
	q := s.selectPermissions(&perms)
	if filter.Slug != "" {
		q = q.Where("p.slug LIKE ?", likePattern(filter.Slug))
	}
	if filter.Model != "" {
		q = q.Where("p.model = ?", filter.Model)
	}
	q = q.Order("p.slug ASC").Limit(pageLimit(filter.Limit))
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	if err := dbkit.WithErr1(q.Scan(ctx), "FindPermissions").Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// ============================================================================
// ROLE PERMISSIONS
// ============================================================================

// AttachRolePermission grants a permission to a role. It reports false when
// the role already had it.
func (s *Store) AttachRolePermission(ctx context.Context, roleID, permissionID int64) (bool, error) {
	now := time.Now()
	link := &PermissionRole{
		PermissionID: permissionID,
		RoleID:       roleID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	result, err := s.db.NewInsert().
		Model(link).
		On("CONFLICT (permission_id, role_id) DO NOTHING").
		Exec(ctx)
	if err = dbkit.WithErr(result, err, "AttachRolePermission").Err(); err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// DetachRolePermission revokes a permission from a role.
func (s *Store) DetachRolePermission(ctx context.Context, roleID, permissionID int64) (int64, error) {
	result, err := s.db.NewDelete().Table("permission_role").
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Exec(ctx)
	if err = dbkit.WithErr(result, err, "DetachRolePermission").Err(); err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// DetachAllRolePermissions revokes every permission of a role.
func (s *Store) DetachAllRolePermissions(ctx context.Context, roleID int64) (int64, error) {
	result, err := s.db.NewDelete().Table("permission_role").
		Where("role_id = ?", roleID).
		Exec(ctx)
	if err = dbkit.WithErr(result, err, "DetachAllRolePermissions").Err(); err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// PermissionsOfRole returns the permissions attached to a single role,
// without level inheritance.
func (s *Store) PermissionsOfRole(ctx context.Context, roleID int64) ([]Permission, error) {
	var perms []Permission
	err := s.selectPermissions(&perms).
		Join("JOIN permission_role AS pr ON pr.permission_id = p.id").
		Where("pr.role_id = ?", roleID).
		Order("p.id ASC").
		Scan(ctx)
	if err = dbkit.WithErr1(err, "PermissionsOfRole").Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

// RoleHasPermission reports whether a permission is attached to a role.
func (s *Store) RoleHasPermission(ctx context.Context, roleID, permissionID int64) (bool, error) {
	exists, err := dbkit.Exists[PermissionRole](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("role_id = ? AND permission_id = ?", roleID, permissionID)
	})
	if err != nil {
		return false, dbkit.WithErr1(err, "RoleHasPermission").Err()
	}
	return exists, nil
}

func stampCreated(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = now
	}
}
