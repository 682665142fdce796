package accesskit

import "context"

// RolePermissions returns the permissions derived from the user's roles:
// those attached to a held role, plus those attached to any role whose level
// is strictly below the user's level. Each permission appears once.
//
// It fails with ErrInvalidModel when the permission model binding is invalid.
func (a *Authorizer) RolePermissions(ctx context.Context) ([]Permission, error) {
	if err := a.config.Models.ValidatePermission(); err != nil {
		return nil, err
	}

	roles, err := a.GetRoles(ctx)
	if err != nil {
		return nil, err
	}

	perms, err := a.permissions.ListRolePermissions(ctx, roleIDs(roles), maxLevel(roles))
	if err != nil {
		return nil, err
	}
	return mergePermissions(perms), nil
}

// GetPermissions returns the user's effective permissions (role-derived and
// direct grants), loading them on first use.
func (a *Authorizer) GetPermissions(ctx context.Context) ([]Permission, error) {
	if perms, ok := a.permissionCache.get(); ok {
		return perms, nil
	}

	fromRoles, err := a.RolePermissions(ctx)
	if err != nil {
		return nil, err
	}
	direct, err := a.permissions.ListUserPermissions(ctx, a.user.UserID())
	if err != nil {
		return nil, err
	}

	perms := mergePermissions(fromRoles, direct)
	a.permissionCache.set(perms)
	a.logger.Debug().
		Str("operation", "permissions_loaded").
		Int("from_roles", len(fromRoles)).
		Int("direct", len(direct)).
		Int("count", len(perms)).
		Msg("permission cache loaded")
	return perms, nil
}

// Can checks the user's permissions against ref, using the same list syntax
// and any/all semantics as Is. In pretend mode the configured stub is returned.
//
// Example:
//
//	ok, err := auth.Can(ctx, "users.create", false)
//	ok, err = auth.Can(ctx, "users.*|posts.edit", false)
func (a *Authorizer) Can(ctx context.Context, ref string, all bool) (bool, error) {
	if a.config.Pretend.Enabled {
		return a.pretend("can"), nil
	}
	if all {
		return a.canAll(ctx, SplitRefs(ref))
	}
	return a.canOne(ctx, SplitRefs(ref))
}

// CanOne checks if the user has at least one of refs.
func (a *Authorizer) CanOne(ctx context.Context, refs ...string) (bool, error) {
	if a.config.Pretend.Enabled {
		return a.pretend("can"), nil
	}
	return a.canOne(ctx, refs)
}

// CanAll checks if the user has every one of refs.
func (a *Authorizer) CanAll(ctx context.Context, refs ...string) (bool, error) {
	if a.config.Pretend.Enabled {
		return a.pretend("can"), nil
	}
	return a.canAll(ctx, refs)
}

func (a *Authorizer) canOne(ctx context.Context, refs []string) (bool, error) {
	for _, ref := range refs {
		ok, err := a.HasPermission(ctx, ref)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (a *Authorizer) canAll(ctx context.Context, refs []string) (bool, error) {
	for _, ref := range refs {
		ok, err := a.HasPermission(ctx, ref)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// HasPermission checks a single reference against the effective permissions
// by decimal ID or slug pattern. Pretend mode does not apply.
func (a *Authorizer) HasPermission(ctx context.Context, ref string) (bool, error) {
	perms, err := a.GetPermissions(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if a.matcher.MatchRef(ref, p.ID, p.Slug) {
			return true, nil
		}
	}
	return false, nil
}

// AttachPermission grants a permission directly to the user. When the
// permission is already effective (directly or through a role) nothing is
// written; both cases return true.
func (a *Authorizer) AttachPermission(ctx context.Context, permissionID int64) (bool, error) {
	perms, err := a.GetPermissions(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.ID == permissionID {
			return true, nil
		}
	}

	if err := a.permissions.AttachPermission(ctx, a.user.UserID(), permissionID, a.now()); err != nil {
		return false, err
	}
	a.permissionCache.invalidate()
	a.logger.Debug().Str("operation", "attach_permission").Int64("permission_id", permissionID).Msg("permission attached")
	return true, nil
}

// DetachPermission removes a direct permission grant and returns the number
// of associations removed.
func (a *Authorizer) DetachPermission(ctx context.Context, permissionID int64) (int64, error) {
	a.permissionCache.invalidate()
	n, err := a.permissions.DetachPermission(ctx, a.user.UserID(), permissionID)
	if err != nil {
		return 0, err
	}
	a.logger.Debug().Str("operation", "detach_permission").Int64("permission_id", permissionID).Int64("removed", n).Msg("permission detached")
	return n, nil
}

// DetachAllPermissions removes every direct permission grant.
func (a *Authorizer) DetachAllPermissions(ctx context.Context) (int64, error) {
	a.permissionCache.invalidate()
	n, err := a.permissions.DetachAllPermissions(ctx, a.user.UserID())
	if err != nil {
		return 0, err
	}
	a.logger.Debug().Str("operation", "detach_all_permissions").Int64("removed", n).Msg("permissions detached")
	return n, nil
}
