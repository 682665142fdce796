package accesskit

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// Registry holds the role and permission definitions of an application.
// It is built at startup and seeded into an AdminStore with Seed.
type Registry struct {
	mu          sync.RWMutex
	separator   string
	roles       map[string]*RoleDefinition
	roleOrder   []string
	permissions map[string]*PermissionDefinition
	permOrder   []string
}

// RoleDefinition describes a role and the permissions attached to it.
type RoleDefinition struct {
	slug        string
	name        string
	description string
	level       int
	permissions []string // slugs or patterns over defined permissions
	registry    *Registry
}

// PermissionDefinition describes a permission.
type PermissionDefinition struct {
	slug        string
	name        string
	description string
	model       string
	registry    *Registry
}

// NewRegistry creates an empty registry using "." to build slugs.
func NewRegistry() *Registry {
	return &Registry{
		separator:   ".",
		roles:       make(map[string]*RoleDefinition),
		permissions: make(map[string]*PermissionDefinition),
	}
}

// WithSeparator sets the separator used when a definition is given a
// display name instead of a slug.
func (r *Registry) WithSeparator(separator string) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.separator = separator
	return r
}

// slugOf returns ref unchanged when it already looks like a slug, and the
// slugified form of a display name ("Content Editor") otherwise.
func (r *Registry) slugOf(ref string) string {
	if strings.ContainsAny(ref, " ABCDEFGHIJKLMNOPQRSTUVWXYZ") {
		return Slugify(ref, r.separator)
	}
	return ref
}

// Role starts defining a role. Redefining a slug replaces the previous
// definition.
//
// Example:
//
//	registry.Role("admin").Level(10).Permissions("*").
//	    Role("editor").Level(5).Permissions("articles.*")
func (r *Registry) Role(ref string) *RoleDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	slug := r.slugOf(ref)
	def := &RoleDefinition{slug: slug, name: ref, level: 1, registry: r}
	if _, exists := r.roles[slug]; !exists {
		r.roleOrder = append(r.roleOrder, slug)
	}
	r.roles[slug] = def
	return def
}

// Permission starts defining a permission.
//
// Example:
//
//	registry.Permission("articles.edit").Model("articles")
func (r *Registry) Permission(ref string) *PermissionDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	slug := r.slugOf(ref)
	def := &PermissionDefinition{slug: slug, name: ref, registry: r}
	if _, exists := r.permissions[slug]; !exists {
		r.permOrder = append(r.permOrder, slug)
	}
	r.permissions[slug] = def
	return def
}

// GetRole returns a role definition, or nil when undefined.
func (r *Registry) GetRole(slug string) *RoleDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roles[slug]
}

// GetRoles returns the defined role slugs in definition order.
func (r *Registry) GetRoles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.roleOrder)
}

// GetPermission returns a permission definition, or nil when undefined.
func (r *Registry) GetPermission(slug string) *PermissionDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.permissions[slug]
}

// GetPermissions returns the defined permission slugs in definition order.
func (r *Registry) GetPermissions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.permOrder)
}

// ValidateRole checks that a role slug is defined.
func (r *Registry) ValidateRole(slug string) error {
	if r.GetRole(slug) == nil {
		return fmt.Errorf("%w: role %q not defined", ErrInvalidRole, slug)
	}
	return nil
}

// ValidatePermission checks that a permission slug is defined.
func (r *Registry) ValidatePermission(slug string) error {
	if r.GetPermission(slug) == nil {
		return fmt.Errorf("%w: permission %q not defined", ErrInvalidPermission, slug)
	}
	return nil
}

// ============================================================================
// ROLE DEFINITION
// ============================================================================

// Name sets the display name.
func (d *RoleDefinition) Name(name string) *RoleDefinition {
	d.name = name
	return d
}

// Description sets the description.
func (d *RoleDefinition) Description(description string) *RoleDefinition {
	d.description = description
	return d
}

// Level sets the role level. Roles inherit the permissions of every role
// with a strictly lower level.
func (d *RoleDefinition) Level(level int) *RoleDefinition {
	d.level = level
	return d
}

// Permissions attaches permissions to the role. Each entry is a permission
// slug or a pattern over the defined permissions ("articles.*", "*").
func (d *RoleDefinition) Permissions(refs ...string) *RoleDefinition {
	d.permissions = append(d.permissions, refs...)
	return d
}

// Role continues defining roles on the registry.
func (d *RoleDefinition) Role(ref string) *RoleDefinition {
	return d.registry.Role(ref)
}

// Permission continues defining permissions on the registry.
func (d *RoleDefinition) Permission(ref string) *PermissionDefinition {
	return d.registry.Permission(ref)
}

// Slug returns the role slug.
func (d *RoleDefinition) Slug() string { return d.slug }

// GetName returns the display name.
func (d *RoleDefinition) GetName() string { return d.name }

// GetLevel returns the role level.
func (d *RoleDefinition) GetLevel() int { return d.level }

// GetPermissions returns the permission references of the role.
func (d *RoleDefinition) GetPermissions() []string { return d.permissions }

func (d *RoleDefinition) toModel() *Role {
	return &Role{
		Name:        d.name,
		Slug:        d.slug,
		Description: d.description,
		Level:       d.level,
	}
}

// ============================================================================
// PERMISSION DEFINITION
// ============================================================================

// Name sets the display name.
func (d *PermissionDefinition) Name(name string) *PermissionDefinition {
	d.name = name
	return d
}

// Description sets the description.
func (d *PermissionDefinition) Description(description string) *PermissionDefinition {
	d.description = description
	return d
}

// Model scopes the permission to entities of the given type.
func (d *PermissionDefinition) Model(model string) *PermissionDefinition {
	d.model = model
	return d
}

// Permission continues defining permissions on the registry.
func (d *PermissionDefinition) Permission(ref string) *PermissionDefinition {
	return d.registry.Permission(ref)
}

// Role continues defining roles on the registry.
func (d *PermissionDefinition) Role(ref string) *RoleDefinition {
	return d.registry.Role(ref)
}

// Slug returns the permission slug.
func (d *PermissionDefinition) Slug() string { return d.slug }

// GetName returns the display name.
func (d *PermissionDefinition) GetName() string { return d.name }

// GetModel returns the governed entity type.
func (d *PermissionDefinition) GetModel() string { return d.model }

func (d *PermissionDefinition) toModel() *Permission {
	return &Permission{
		Name:        d.name,
		Slug:        d.slug,
		Description: d.description,
		Model:       d.model,
	}
}

// ============================================================================
// SEEDING
// ============================================================================

// SeedResult reports what Seed changed.
type SeedResult struct {
	RolesCreated       int
	PermissionsCreated int
	LinksCreated       int
}

// Seed creates every defined permission and role missing from store and
// attaches role permissions. Existing rows are left untouched, so seeding
// twice is a no-op. When store implements Transactor the whole seed runs in
// one transaction.
func (r *Registry) Seed(ctx context.Context, store AdminStore) (SeedResult, error) {
	if tx, ok := store.(Transactor); ok {
		var result SeedResult
		err := tx.Transaction(ctx, func(ctx context.Context, b Backend) error {
			var err error
			result, err = r.seed(ctx, b)
			return err
		})
		return result, err
	}
	return r.seed(ctx, store)
}

func (r *Registry) seed(ctx context.Context, store AdminStore) (SeedResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result SeedResult
	permIDs := make(map[string]int64, len(r.permOrder))

	for _, slug := range r.permOrder {
		perm, err := store.FindPermissionBySlug(ctx, slug)
		if IsNotFound(err) {
			perm = r.permissions[slug].toModel()
			err = store.CreatePermission(ctx, perm)
			if err == nil {
				result.PermissionsCreated++
			}
		}
		if err != nil {
			return result, err
		}
		permIDs[slug] = perm.ID
	}

	matcher := NewSlugMatcher(false)
	for _, slug := range r.roleOrder {
		def := r.roles[slug]
		role, err := store.FindRoleBySlug(ctx, slug)
		if IsNotFound(err) {
			role = def.toModel()
			err = store.CreateRole(ctx, role)
			if err == nil {
				result.RolesCreated++
			}
		}
		if err != nil {
			return result, err
		}

		for _, ref := range def.permissions {
			ids, err := r.resolvePermissions(ctx, store, matcher, ref, permIDs)
			if err != nil {
				return result, err
			}
			for _, id := range ids {
				created, err := store.AttachRolePermission(ctx, role.ID, id)
				if err != nil {
					return result, err
				}
				if created {
					result.LinksCreated++
				}
			}
		}
	}
	return result, nil
}

// resolvePermissions expands ref against the defined permissions, falling
// back to an exact lookup in store for permissions defined elsewhere.
func (r *Registry) resolvePermissions(ctx context.Context, store AdminStore, m *SlugMatcher, ref string, defined map[string]int64) ([]int64, error) {
	var ids []int64
	for _, slug := range r.permOrder {
		if m.Match(ref, slug) {
			ids = append(ids, defined[slug])
		}
	}
	if len(ids) > 0 || strings.Contains(ref, "*") {
		return ids, nil
	}

	perm, err := store.FindPermissionBySlug(ctx, ref)
	if err != nil {
		if IsNotFound(err) {
			return nil, NewError(ErrInvalidPermission, "role references an undefined permission").WithPermission(ref)
		}
		return nil, err
	}
	return []int64{perm.ID}, nil
}
