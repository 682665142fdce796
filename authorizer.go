package accesskit

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// CacheState is the load state of one of an Authorizer's caches.
type CacheState int

const (
	// NotLoaded means the next read goes to the store.
	NotLoaded CacheState = iota
	// Loaded means reads are served from memory.
	Loaded
)

// String returns the state name.
func (s CacheState) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "not_loaded"
}

type cache[T any] struct {
	state CacheState
	items []T
}

func (c *cache[T]) get() ([]T, bool) {
	return c.items, c.state == Loaded
}

func (c *cache[T]) set(items []T) {
	c.items = items
	c.state = Loaded
}

func (c *cache[T]) invalidate() {
	c.items = nil
	c.state = NotLoaded
}

// Authorizer answers role, permission and entity checks for a single user.
//
// It caches the user's roles and permissions after the first read and drops
// the relevant cache on every attach or detach. An Authorizer is meant to
// live for one request and is not safe for concurrent use; build a fresh one
// per request with Service.For.
type Authorizer struct {
	user        Identifiable
	roles       RoleStore
	permissions PermissionStore
	config      Config
	matcher     *SlugMatcher
	logger      zerolog.Logger
	now         func() time.Time
	fallback    FallbackFunc

	roleCache       cache[Role]
	permissionCache cache[Permission]
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithLogger sets the logger used for debug events.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Authorizer) {
		a.logger = logger
	}
}

// WithMatcher shares a SlugMatcher between Authorizers.
func WithMatcher(m *SlugMatcher) Option {
	return func(a *Authorizer) {
		a.matcher = m
	}
}

// WithClock sets the clock used for association timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *Authorizer) {
		a.now = now
	}
}

// WithFallback sets the handler for dynamic calls no prefix recognises.
func WithFallback(fn FallbackFunc) Option {
	return func(a *Authorizer) {
		a.fallback = fn
	}
}

// NewAuthorizer creates an Authorizer for user.
//
// Example:
//
//	store := accesskit.NewStore(db, cfg.Models)
//	auth := accesskit.NewAuthorizer(user, store, store, cfg)
//	ok, err := auth.Is(ctx, "admin|moderator", false)
func NewAuthorizer(user Identifiable, roles RoleStore, permissions PermissionStore, config Config, opts ...Option) *Authorizer {
	config.ApplyDefaults()
	a := &Authorizer{
		user:        user,
		roles:       roles,
		permissions: permissions,
		config:      config,
		logger:      zerolog.Nop(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.matcher == nil {
		a.matcher = NewSlugMatcher(config.CaseInsensitive)
	}
	a.logger = a.logger.With().
		Str("component", "accesskit").
		Int64("user_id", user.UserID()).
		Logger()
	return a
}

// UserID returns the ID of the user this Authorizer is for.
func (a *Authorizer) UserID() int64 {
	return a.user.UserID()
}

// Config returns the configuration the Authorizer was built with.
func (a *Authorizer) Config() Config {
	return a.config
}

// RoleCacheState reports whether the role set is cached.
func (a *Authorizer) RoleCacheState() CacheState {
	return a.roleCache.state
}

// PermissionCacheState reports whether the permission set is cached.
func (a *Authorizer) PermissionCacheState() CacheState {
	return a.permissionCache.state
}

// GetRoles returns the roles held by the user, loading them on first use.
func (a *Authorizer) GetRoles(ctx context.Context) ([]Role, error) {
	if roles, ok := a.roleCache.get(); ok {
		return roles, nil
	}

	roles, err := a.roles.ListRoles(ctx, a.user.UserID())
	if err != nil {
		return nil, err
	}
	a.roleCache.set(roles)
	a.logger.Debug().Str("operation", "roles_loaded").Int("count", len(roles)).Msg("role cache loaded")
	return roles, nil
}

// Is checks the user's roles against ref, which may name one role or a list
// separated by "," or "|". With all set every listed role must be held,
// otherwise one is enough. In pretend mode the configured stub is returned.
//
// Example:
//
//	ok, err := auth.Is(ctx, "admin", false)
//	ok, err = auth.Is(ctx, "editor, moderator", true)
func (a *Authorizer) Is(ctx context.Context, ref string, all bool) (bool, error) {
	if a.config.Pretend.Enabled {
		return a.pretend("is"), nil
	}
	if all {
		return a.isAll(ctx, SplitRefs(ref))
	}
	return a.isOne(ctx, SplitRefs(ref))
}

// IsOne checks if the user holds at least one of refs.
func (a *Authorizer) IsOne(ctx context.Context, refs ...string) (bool, error) {
	if a.config.Pretend.Enabled {
		return a.pretend("is"), nil
	}
	return a.isOne(ctx, refs)
}

// IsAll checks if the user holds every one of refs.
func (a *Authorizer) IsAll(ctx context.Context, refs ...string) (bool, error) {
	if a.config.Pretend.Enabled {
		return a.pretend("is"), nil
	}
	return a.isAll(ctx, refs)
}

func (a *Authorizer) isOne(ctx context.Context, refs []string) (bool, error) {
	for _, ref := range refs {
		ok, err := a.HasRole(ctx, ref)
		if err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

func (a *Authorizer) isAll(ctx context.Context, refs []string) (bool, error) {
	for _, ref := range refs {
		ok, err := a.HasRole(ctx, ref)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// HasRole checks a single reference against the held roles. The reference
// matches a role by its decimal ID or as a pattern over its slug. Pretend
// mode does not apply.
func (a *Authorizer) HasRole(ctx context.Context, ref string) (bool, error) {
	roles, err := a.GetRoles(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if a.matcher.MatchRef(ref, r.ID, r.Slug) {
			return true, nil
		}
	}
	return false, nil
}

// AttachRole gives the user a role. Attaching a role the user already holds
// is a no-op; both cases return true.
func (a *Authorizer) AttachRole(ctx context.Context, roleID int64) (bool, error) {
	roles, err := a.GetRoles(ctx)
	if err != nil {
		return false, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return true, nil
		}
	}

	if err := a.roles.AttachRole(ctx, a.user.UserID(), roleID, a.now()); err != nil {
		return false, err
	}
	a.roleCache.invalidate()
	a.logger.Debug().Str("operation", "attach_role").Int64("role_id", roleID).Msg("role attached")
	return true, nil
}

// DetachRole removes a role from the user and returns the number of
// associations removed. The role cache is dropped before the store is hit.
func (a *Authorizer) DetachRole(ctx context.Context, roleID int64) (int64, error) {
	a.roleCache.invalidate()
	n, err := a.roles.DetachRole(ctx, a.user.UserID(), roleID)
	if err != nil {
		return 0, err
	}
	a.logger.Debug().Str("operation", "detach_role").Int64("role_id", roleID).Int64("removed", n).Msg("role detached")
	return n, nil
}

// DetachAllRoles removes every role from the user.
func (a *Authorizer) DetachAllRoles(ctx context.Context) (int64, error) {
	a.roleCache.invalidate()
	n, err := a.roles.DetachAllRoles(ctx, a.user.UserID())
	if err != nil {
		return 0, err
	}
	a.logger.Debug().Str("operation", "detach_all_roles").Int64("removed", n).Msg("roles detached")
	return n, nil
}

// Level returns the highest level among the user's roles, or 0 without roles.
func (a *Authorizer) Level(ctx context.Context) (int, error) {
	roles, err := a.GetRoles(ctx)
	if err != nil {
		return 0, err
	}
	return maxLevel(roles), nil
}

func (a *Authorizer) pretend(kind string) bool {
	var result bool
	switch kind {
	case "is":
		result = a.config.Pretend.Options.Is
	case "can":
		result = a.config.Pretend.Options.Can
	case "allowed":
		result = a.config.Pretend.Options.Allowed
	}
	a.logger.Debug().Str("operation", kind).Bool("result", result).Msg("pretend mode")
	return result
}
