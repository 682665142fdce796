package accesskit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedStore creates a role hierarchy with unique slugs and returns the
// created rows keyed by short name.
func seedStore(t *testing.T, store *Store) (map[string]*Role, map[string]*Permission) {
	t.Helper()
	ctx := context.Background()

	perms := map[string]*Permission{
		"create": {Name: "Create", Slug: uniqueSlug("users.create")},
		"edit":   {Name: "Edit", Slug: uniqueSlug("posts.edit"), Model: "posts"},
		"view":   {Name: "View", Slug: uniqueSlug("posts.view")},
	}
	for _, p := range perms {
		require.NoError(t, store.CreatePermission(ctx, p))
		require.NotZero(t, p.ID)
	}

	roles := map[string]*Role{
		"admin":  {Name: "Admin", Slug: uniqueSlug("admin"), Level: 10},
		"editor": {Name: "Editor", Slug: uniqueSlug("editor"), Level: 2},
		"viewer": {Name: "Viewer", Slug: uniqueSlug("viewer"), Level: 1},
	}
	for _, r := range roles {
		require.NoError(t, store.CreateRole(ctx, r))
		require.NotZero(t, r.ID)
	}

	for role, perm := range map[string]string{"admin": "create", "editor": "edit", "viewer": "view"} {
		created, err := store.AttachRolePermission(ctx, roles[role].ID, perms[perm].ID)
		require.NoError(t, err)
		require.True(t, created)
	}
	return roles, perms
}

func TestStoreDatabaseAdmin(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	roles, perms := seedStore(t, store)

	t.Run("find by slug", func(t *testing.T) {
		r, err := store.FindRoleBySlug(ctx, roles["editor"].Slug)
		require.NoError(t, err)
		assert.Equal(t, roles["editor"].ID, r.ID)
		assert.Equal(t, 2, r.Level)

		p, err := store.FindPermissionBySlug(ctx, perms["edit"].Slug)
		require.NoError(t, err)
		assert.Equal(t, "posts", p.Model)

		_, err = store.FindRoleBySlug(ctx, uniqueSlug("ghost"))
		assert.True(t, IsNotFound(err))
		_, err = store.FindPermissionBySlug(ctx, uniqueSlug("ghost"))
		assert.True(t, IsNotFound(err))
	})

	t.Run("duplicate slug", func(t *testing.T) {
		err := store.CreateRole(ctx, &Role{Name: "Again", Slug: roles["admin"].Slug, Level: 1})
		assert.ErrorIs(t, err, ErrInvalidRole)

		err = store.CreatePermission(ctx, &Permission{Name: "Again", Slug: perms["view"].Slug})
		assert.ErrorIs(t, err, ErrInvalidPermission)
	})

	t.Run("invalid role", func(t *testing.T) {
		err := store.CreateRole(ctx, &Role{Slug: uniqueSlug("nameless")})
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("find with filter", func(t *testing.T) {
		found, err := store.FindRoles(ctx, NewRoleFilter().WithSlug(roles["editor"].Slug))
		require.NoError(t, err)
		assert.Equal(t, []string{roles["editor"].Slug}, slugsOf(found))

		found, err = store.FindRoles(ctx, NewRoleFilter().WithSlug("admin.*").WithMinLevel(10))
		require.NoError(t, err)
		assert.Contains(t, slugsOf(found), roles["admin"].Slug)
		for _, r := range found {
			assert.GreaterOrEqual(t, r.Level, 10)
		}

		ps, err := store.FindPermissions(ctx, NewPermissionFilter().WithModel("posts").WithSlug("posts.edit.*"))
		require.NoError(t, err)
		assert.Contains(t, slugsOf(ps), perms["edit"].Slug)
	})

	t.Run("role permissions", func(t *testing.T) {
		ok, err := store.RoleHasPermission(ctx, roles["editor"].ID, perms["edit"].ID)
		require.NoError(t, err)
		assert.True(t, ok)

		created, err := store.AttachRolePermission(ctx, roles["editor"].ID, perms["edit"].ID)
		require.NoError(t, err)
		assert.False(t, created)

		n, err := store.DetachRolePermission(ctx, roles["editor"].ID, perms["edit"].ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		ps, err := store.PermissionsOfRole(ctx, roles["editor"].ID)
		require.NoError(t, err)
		assert.Empty(t, ps)
	})
}

func TestStoreDatabaseLevelZeroRole(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	guest := &Role{Name: "Guest", Slug: uniqueSlug("guest"), Level: 0}
	require.NoError(t, store.CreateRole(ctx, guest))

	found, err := store.FindRoleBySlug(ctx, guest.Slug)
	require.NoError(t, err)
	assert.Equal(t, 0, found.Level)

	userID := uniqueUserID()
	auth := NewAuthorizer(testUser{id: userID}, store, store, DefaultConfig())
	_, err = auth.AttachRole(ctx, guest.ID)
	require.NoError(t, err)

	level, err := auth.Level(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, level)
}

func TestStoreDatabaseUserAssociations(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	roles, perms := seedStore(t, store)
	userID := uniqueUserID()
	now := time.Now()

	require.NoError(t, store.AttachRole(ctx, userID, roles["editor"].ID, now))
	require.NoError(t, store.AttachRole(ctx, userID, roles["editor"].ID, now), "attaching twice is a no-op")
	require.NoError(t, store.AttachRole(ctx, userID, roles["viewer"].ID, now))

	held, err := store.ListRoles(ctx, userID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{roles["editor"].Slug, roles["viewer"].Slug}, slugsOf(held))

	count, err := store.CountUserRoles(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	users, err := store.UsersWithRole(ctx, roles["editor"].ID)
	require.NoError(t, err)
	assert.Contains(t, users, userID)

	require.NoError(t, store.AttachPermission(ctx, userID, perms["create"].ID, now))
	direct, err := store.ListUserPermissions(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []string{perms["create"].Slug}, slugsOf(direct))

	n, err := store.DetachPermission(ctx, userID, perms["create"].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.DetachRole(ctx, userID, roles["viewer"].ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.DetachAllRoles(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	held, err = store.ListRoles(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, held)
}

func TestStoreDatabaseListRolePermissions(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	roles, perms := seedStore(t, store)

	got, err := store.ListRolePermissions(ctx, []int64{roles["editor"].ID}, 2)
	require.NoError(t, err)
	assert.Subset(t, slugsOf(got), []string{perms["edit"].Slug, perms["view"].Slug})
	assert.NotContains(t, slugsOf(got), perms["create"].Slug)

	got, err = store.ListRolePermissions(ctx, nil, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreDatabaseAuthorizer(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	roles, perms := seedStore(t, store)
	userID := uniqueUserID()

	auth := NewAuthorizer(testUser{id: userID}, store, store, DefaultConfig())
	attached, err := auth.AttachRole(ctx, roles["editor"].ID)
	require.NoError(t, err)
	assert.True(t, attached)

	ok, err := auth.Is(ctx, roles["editor"].Slug, false)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.Can(ctx, perms["view"].Slug, false)
	require.NoError(t, err)
	assert.True(t, ok, "inherited from a lower level role")

	ok, err = auth.Can(ctx, perms["create"].Slug, false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreDatabaseTransaction(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	store.ResetTransactionMetrics()

	slug := uniqueSlug("rollback")
	errAbort := errors.New("abort")
	err := store.Transaction(ctx, func(ctx context.Context, tx Backend) error {
		if err := tx.CreateRole(ctx, &Role{Name: "Temp", Slug: slug, Level: 1}); err != nil {
			return err
		}
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	_, err = store.FindRoleBySlug(ctx, slug)
	assert.True(t, IsNotFound(err), "rolled back")

	committed := uniqueSlug("commit")
	err = store.Transaction(ctx, func(ctx context.Context, tx Backend) error {
		return tx.CreateRole(ctx, &Role{Name: "Kept", Slug: committed, Level: 1})
	})
	require.NoError(t, err)

	_, err = store.FindRoleBySlug(ctx, committed)
	assert.NoError(t, err)

	err = store.ReadOnlyTransaction(ctx, func(ctx context.Context, tx Backend) error {
		_, err := tx.FindRoleBySlug(ctx, committed)
		return err
	})
	assert.NoError(t, err)

	m := store.TransactionMetrics()
	assert.Equal(t, int64(3), m.TotalTransactions)
	assert.Equal(t, int64(1), m.FailedTransactions)
}

func TestStoreDatabaseHealth(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	assert.NoError(t, store.Ping(ctx))
	assert.True(t, store.IsHealthy(ctx))
	assert.True(t, store.Health(ctx).Healthy)
	t.Logf("Pool stats: %+v", store.PoolStats())
}
