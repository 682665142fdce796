package accesskit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Identifiable is implemented by the user-like entity an Authorizer is attached to.
type Identifiable interface {
	UserID() int64
}

// Ownable is implemented by domain entities that reference an owning user.
// OwnerID returns the value of the named owner column and whether the entity has it.
type Ownable interface {
	OwnerID(column string) (int64, bool)
}

// EntityTyper lets a domain entity name its own type for entity-scoped
// permissions. Entities that don't implement it are named by their Go type.
type EntityTyper interface {
	EntityType() string
}

// RoleStore persists the many-to-many association between users and roles.
type RoleStore interface {
	ListRoles(ctx context.Context, userID int64) ([]Role, error)
	AttachRole(ctx context.Context, userID, roleID int64, at time.Time) error
	DetachRole(ctx context.Context, userID, roleID int64) (int64, error)
	DetachAllRoles(ctx context.Context, userID int64) (int64, error)
}

// PermissionStore persists direct user permissions and resolves the
// permissions reachable through role membership.
type PermissionStore interface {
	ListUserPermissions(ctx context.Context, userID int64) ([]Permission, error)
	// ListRolePermissions returns the permissions attached to any of roleIDs
	// or to any role whose level is strictly below belowLevel.
	ListRolePermissions(ctx context.Context, roleIDs []int64, belowLevel int) ([]Permission, error)
	AttachPermission(ctx context.Context, userID, permissionID int64, at time.Time) error
	DetachPermission(ctx context.Context, userID, permissionID int64) (int64, error)
	DetachAllPermissions(ctx context.Context, userID int64) (int64, error)
}

// AdminStore manages the roles and permissions themselves.
type AdminStore interface {
	CreateRole(ctx context.Context, role *Role) error
	CreatePermission(ctx context.Context, permission *Permission) error
	FindRoleBySlug(ctx context.Context, slug string) (*Role, error)
	FindPermissionBySlug(ctx context.Context, slug string) (*Permission, error)
	FindRoles(ctx context.Context, filter RoleFilter) ([]Role, error)
	FindPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, error)
	AttachRolePermission(ctx context.Context, roleID, permissionID int64) (bool, error)
	DetachRolePermission(ctx context.Context, roleID, permissionID int64) (int64, error)
	DetachAllRolePermissions(ctx context.Context, roleID int64) (int64, error)
	PermissionsOfRole(ctx context.Context, roleID int64) ([]Permission, error)
}

// Backend is a store that serves every concern.
type Backend interface {
	RoleStore
	PermissionStore
	AdminStore
}

// Transactor runs fn against a store bound to a single transaction.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Backend) error) error
}

// MigrationManager defines the migration management interface
type MigrationManager interface {
	Migrations() []dbkit.Migration
	Migrate(ctx context.Context) error
}

// HealthMonitor defines the health monitoring interface
type HealthMonitor interface {
	Health(ctx context.Context) dbkit.HealthStatus
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
}
