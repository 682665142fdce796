package accesskit

import (
	"strconv"
	"time"

	"github.com/uptrace/bun"
)

// Role is a named privilege bundle. Higher levels are more privileged and
// inherit the permissions of every role with a strictly lower level.
type Role struct {
	bun.BaseModel `bun:"table:roles,alias:r"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull" validate:"required,max=255"`
	Slug        string    `bun:"slug,notnull,unique" validate:"required,max=255"`
	Description string    `bun:"description"`
	Level       int       `bun:"level,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// Permission is a named capability. When Model is set the permission only
// governs entities of that type (see Authorizer.Allowed).
type Permission struct {
	bun.BaseModel `bun:"table:permissions,alias:p"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Name        string    `bun:"name,notnull" validate:"required,max=255"`
	Slug        string    `bun:"slug,notnull,unique" validate:"required,max=255"`
	Description string    `bun:"description"`
	Model       string    `bun:"model" validate:"max=255"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// RoleUser is the pivot between users and roles.
type RoleUser struct {
	bun.BaseModel `bun:"table:role_user,alias:ru"`

	RoleID    int64     `bun:"role_id,pk"`
	UserID    int64     `bun:"user_id,pk"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// PermissionUser is the pivot for permissions granted directly to users.
type PermissionUser struct {
	bun.BaseModel `bun:"table:permission_user,alias:pu"`

	PermissionID int64     `bun:"permission_id,pk"`
	UserID       int64     `bun:"user_id,pk"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// PermissionRole is the pivot for permissions granted to roles.
type PermissionRole struct {
	bun.BaseModel `bun:"table:permission_role,alias:pr"`

	PermissionID int64     `bun:"permission_id,pk"`
	RoleID       int64     `bun:"role_id,pk"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// Models binds the role and permission entities to their tables.
type Models struct {
	Role       string `mapstructure:"role"`
	Permission string `mapstructure:"permission"`
}

// DefaultModels returns the table bindings used by the bundled migrations.
func DefaultModels() Models {
	return Models{
		Role:       "roles",
		Permission: "permissions",
	}
}

// maxLevel returns the highest level among roles, or 0 when there are none.
func maxLevel(roles []Role) int {
	level := 0
	for i, r := range roles {
		if i == 0 || r.Level > level {
			level = r.Level
		}
	}
	return level
}

// mergePermissions returns the union of both sets, keeping the first
// occurrence of each permission ID.
func mergePermissions(sets ...[]Permission) []Permission {
	seen := make(map[int64]bool)
	var result []Permission
	for _, set := range sets {
		for _, p := range set {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			result = append(result, p)
		}
	}
	return result
}

func roleIDs(roles []Role) []int64 {
	ids := make([]int64, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	return ids
}

func idString(id int64) string {
	return strconv.FormatInt(id, 10)
}
