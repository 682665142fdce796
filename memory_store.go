package accesskit

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-process Backend. It is meant for tests, demos and
// small deployments where roles are seeded at startup.
type MemoryStore struct {
	mu      sync.RWMutex
	matcher *SlugMatcher

	roles       map[int64]Role
	permissions map[int64]Permission

	// user -> role -> attached at
	roleUser map[int64]map[int64]time.Time
	// user -> permission -> attached at
	permissionUser map[int64]map[int64]time.Time
	// role -> permission -> attached at
	permissionRole map[int64]map[int64]time.Time

	nextRoleID       int64
	nextPermissionID int64
}

var (
	_ Backend    = (*MemoryStore)(nil)
	_ Transactor = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		matcher:        DefaultMatcher,
		roles:          make(map[int64]Role),
		permissions:    make(map[int64]Permission),
		roleUser:       make(map[int64]map[int64]time.Time),
		permissionUser: make(map[int64]map[int64]time.Time),
		permissionRole: make(map[int64]map[int64]time.Time),
	}
}

// ============================================================================
// ROLE STORE
// ============================================================================

// ListRoles returns the roles held by a user, ordered by ID.
func (m *MemoryStore) ListRoles(ctx context.Context, userID int64) ([]Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var roles []Role
	for _, id := range sortedKeys(m.roleUser[userID]) {
		if r, ok := m.roles[id]; ok {
			roles = append(roles, r)
		}
	}
	return roles, nil
}

// AttachRole links a role to a user. Attaching a held role is a no-op.
// It returns ErrNotFound for an unknown role.
func (m *MemoryStore) AttachRole(ctx context.Context, userID, roleID int64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.roles[roleID]; !ok {
		return NewError(ErrNotFound, "role not found").WithRole(idString(roleID)).WithUser(userID)
	}
	link(m.roleUser, userID, roleID, at)
	return nil
}

// DetachRole unlinks a role from a user and returns the links removed.
func (m *MemoryStore) DetachRole(ctx context.Context, userID, roleID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return unlink(m.roleUser, userID, roleID), nil
}

// DetachAllRoles unlinks every role from a user.
func (m *MemoryStore) DetachAllRoles(ctx context.Context, userID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return unlinkAll(m.roleUser, userID), nil
}

// ============================================================================
// PERMISSION STORE
// ============================================================================

// ListUserPermissions returns the permissions granted directly to a user.
func (m *MemoryStore) ListUserPermissions(ctx context.Context, userID int64) ([]Permission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.permissionsByID(sortedKeys(m.permissionUser[userID])), nil
}

// ListRolePermissions returns the permissions attached to any of roleIDs or
// to any role whose level is strictly below belowLevel.
func (m *MemoryStore) ListRolePermissions(ctx context.Context, roleIDs []int64, belowLevel int) ([]Permission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make(map[int64]struct{})
	for roleID, perms := range m.permissionRole {
		role, ok := m.roles[roleID]
		if !ok {
			continue
		}
		if !slices.Contains(roleIDs, roleID) && role.Level >= belowLevel {
			continue
		}
		for permID := range perms {
			ids[permID] = struct{}{}
		}
	}
	return m.permissionsByID(slices.Sorted(maps.Keys(ids))), nil
}

// AttachPermission grants a permission directly to a user.
func (m *MemoryStore) AttachPermission(ctx context.Context, userID, permissionID int64, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.permissions[permissionID]; !ok {
		return NewError(ErrNotFound, "permission not found").WithPermission(idString(permissionID)).WithUser(userID)
	}
	link(m.permissionUser, userID, permissionID, at)
	return nil
}

// DetachPermission revokes a direct grant and returns the links removed.
func (m *MemoryStore) DetachPermission(ctx context.Context, userID, permissionID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return unlink(m.permissionUser, userID, permissionID), nil
}

// DetachAllPermissions revokes every direct grant of a user.
func (m *MemoryStore) DetachAllPermissions(ctx context.Context, userID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return unlinkAll(m.permissionUser, userID), nil
}

// ============================================================================
// ADMIN STORE
// ============================================================================

// CreateRole validates role, assigns the next ID and stores it. Slugs are
// unique.
func (m *MemoryStore) CreateRole(ctx context.Context, role *Role) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateRole(role); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.roles {
		if r.Slug == role.Slug {
			return NewError(ErrInvalidRole, "role slug already exists").WithRole(role.Slug)
		}
	}
	m.nextRoleID++
	role.ID = m.nextRoleID
	stampCreated(&role.CreatedAt, &role.UpdatedAt)
	m.roles[role.ID] = *role
	return nil
}

// CreatePermission validates permission, assigns the next ID and stores it.
func (m *MemoryStore) CreatePermission(ctx context.Context, permission *Permission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidatePermission(permission); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, p := range m.permissions {
		if p.Slug == permission.Slug {
			return NewError(ErrInvalidPermission, "permission slug already exists").WithPermission(permission.Slug)
		}
	}
	m.nextPermissionID++
	permission.ID = m.nextPermissionID
	stampCreated(&permission.CreatedAt, &permission.UpdatedAt)
	m.permissions[permission.ID] = *permission
	return nil
}

// FindRoleBySlug returns a copy of the role with the given slug.
func (m *MemoryStore) FindRoleBySlug(ctx context.Context, slug string) (*Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.roles {
		if r.Slug == slug {
			return &r, nil
		}
	}
	return nil, NewError(ErrNotFound, "role not found").WithRole(slug)
}

// FindPermissionBySlug returns a copy of the permission with the given slug.
func (m *MemoryStore) FindPermissionBySlug(ctx context.Context, slug string) (*Permission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.permissions {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, NewError(ErrNotFound, "permission not found").WithPermission(slug)
}

// FindRoles lists roles matching filter, ordered by level then slug.
func (m *MemoryStore) FindRoles(ctx context.Context, filter RoleFilter) ([]Role, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var roles []Role
	for _, r := range m.roles {
		if filter.matches(m.matcher, r) {
			roles = append(roles, r)
		}
	}
	slices.SortFunc(roles, func(a, b Role) int {
		if a.Level != b.Level {
			return a.Level - b.Level
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
	return page(roles, filter.Limit, filter.Offset), nil
}

// FindPermissions lists permissions matching filter, ordered by slug.
func (m *MemoryStore) FindPermissions(ctx context.Context, filter PermissionFilter) ([]Permission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var perms []Permission
	for _, p := range m.permissions {
		if filter.matches(m.matcher, p) {
			perms = append(perms, p)
		}
	}
	slices.SortFunc(perms, func(a, b Permission) int {
		return cmp.Compare(a.Slug, b.Slug)
	})
	return page(perms, filter.Limit, filter.Offset), nil
}

// AttachRolePermission grants a permission to a role. It reports false
// when the role already had it.
func (m *MemoryStore) AttachRolePermission(ctx context.Context, roleID, permissionID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.roles[roleID]; !ok {
		return false, NewError(ErrNotFound, "role not found").WithRole(idString(roleID))
	}
	if _, ok := m.permissions[permissionID]; !ok {
		return false, NewError(ErrNotFound, "permission not found").WithPermission(idString(permissionID))
	}
	if _, ok := m.permissionRole[roleID][permissionID]; ok {
		return false, nil
	}
	link(m.permissionRole, roleID, permissionID, time.Now())
	return true, nil
}

// DetachRolePermission revokes a permission from a role.
func (m *MemoryStore) DetachRolePermission(ctx context.Context, roleID, permissionID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return unlink(m.permissionRole, roleID, permissionID), nil
}

// DetachAllRolePermissions revokes every permission of a role.
func (m *MemoryStore) DetachAllRolePermissions(ctx context.Context, roleID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	return unlinkAll(m.permissionRole, roleID), nil
}

// PermissionsOfRole returns the permissions attached directly to a role.
func (m *MemoryStore) PermissionsOfRole(ctx context.Context, roleID int64) ([]Permission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.permissionsByID(sortedKeys(m.permissionRole[roleID])), nil
}

// ============================================================================
// TRANSACTIONS
// ============================================================================

// Transaction runs fn against the store and restores the previous state
// when fn fails. It is not isolated from concurrent writers.
func (m *MemoryStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Backend) error) error {
	snap := m.snapshot()
	if err := fn(ctx, m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	roles            map[int64]Role
	permissions      map[int64]Permission
	roleUser         map[int64]map[int64]time.Time
	permissionUser   map[int64]map[int64]time.Time
	permissionRole   map[int64]map[int64]time.Time
	nextRoleID       int64
	nextPermissionID int64
}

func (m *MemoryStore) snapshot() memorySnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return memorySnapshot{
		roles:            maps.Clone(m.roles),
		permissions:      maps.Clone(m.permissions),
		roleUser:         cloneLinks(m.roleUser),
		permissionUser:   cloneLinks(m.permissionUser),
		permissionRole:   cloneLinks(m.permissionRole),
		nextRoleID:       m.nextRoleID,
		nextPermissionID: m.nextPermissionID,
	}
}

func (m *MemoryStore) restore(s memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roles = s.roles
	m.permissions = s.permissions
	m.roleUser = s.roleUser
	m.permissionUser = s.permissionUser
	m.permissionRole = s.permissionRole
	m.nextRoleID = s.nextRoleID
	m.nextPermissionID = s.nextPermissionID
}

// ============================================================================
// HELPERS
// ============================================================================

func (m *MemoryStore) permissionsByID(ids []int64) []Permission {
	var perms []Permission
	for _, id := range ids {
		if p, ok := m.permissions[id]; ok {
			perms = append(perms, p)
		}
	}
	return perms
}

func link(links map[int64]map[int64]time.Time, owner, target int64, at time.Time) {
	set, ok := links[owner]
	if !ok {
		set = make(map[int64]time.Time)
		links[owner] = set
	}
	if _, ok := set[target]; !ok {
		set[target] = at
	}
}

func unlink(links map[int64]map[int64]time.Time, owner, target int64) int64 {
	if _, ok := links[owner][target]; !ok {
		return 0
	}
	delete(links[owner], target)
	return 1
}

func unlinkAll(links map[int64]map[int64]time.Time, owner int64) int64 {
	n := int64(len(links[owner]))
	delete(links, owner)
	return n
}

func cloneLinks(links map[int64]map[int64]time.Time) map[int64]map[int64]time.Time {
	out := make(map[int64]map[int64]time.Time, len(links))
	for k, v := range links {
		out[k] = maps.Clone(v)
	}
	return out
}

func sortedKeys[V any](m map[int64]V) []int64 {
	return slices.Sorted(maps.Keys(m))
}

