package accesskit

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fernandezvara/dbkit"
)

// testUser is a minimal Identifiable.
type testUser struct {
	id int64
}

func (u testUser) UserID() int64 { return u.id }

// article is an Ownable entity typed by its Go type.
type article struct {
	ID       int64
	UserID   int64
	AuthorID int64
}

func (a *article) OwnerID(column string) (int64, bool) {
	switch column {
	case "user_id":
		return a.UserID, true
	case "author_id":
		return a.AuthorID, true
	}
	return 0, false
}

// typedPost names its own entity type.
type typedPost struct {
	owner int64
}

func (p typedPost) EntityType() string { return "posts" }

func (p typedPost) OwnerID(column string) (int64, bool) {
	return p.owner, column == DefaultOwnerColumn
}

// countingStore wraps a Backend and counts every call that reaches it.
type countingStore struct {
	Backend
	mu    sync.Mutex
	calls map[string]int
}

func newCountingStore(b Backend) *countingStore {
	return &countingStore{Backend: b, calls: make(map[string]int)}
}

func (c *countingStore) record(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[name]++
}

func (c *countingStore) count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[name]
}

func (c *countingStore) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, v := range c.calls {
		n += v
	}
	return n
}

func (c *countingStore) ListRoles(ctx context.Context, userID int64) ([]Role, error) {
	c.record("ListRoles")
	return c.Backend.ListRoles(ctx, userID)
}

func (c *countingStore) AttachRole(ctx context.Context, userID, roleID int64, at time.Time) error {
	c.record("AttachRole")
	return c.Backend.AttachRole(ctx, userID, roleID, at)
}

func (c *countingStore) DetachRole(ctx context.Context, userID, roleID int64) (int64, error) {
	c.record("DetachRole")
	return c.Backend.DetachRole(ctx, userID, roleID)
}

func (c *countingStore) ListUserPermissions(ctx context.Context, userID int64) ([]Permission, error) {
	c.record("ListUserPermissions")
	return c.Backend.ListUserPermissions(ctx, userID)
}

func (c *countingStore) ListRolePermissions(ctx context.Context, roleIDs []int64, belowLevel int) ([]Permission, error) {
	c.record("ListRolePermissions")
	return c.Backend.ListRolePermissions(ctx, roleIDs, belowLevel)
}

func (c *countingStore) AttachPermission(ctx context.Context, userID, permissionID int64, at time.Time) error {
	c.record("AttachPermission")
	return c.Backend.AttachPermission(ctx, userID, permissionID, at)
}

// failingStore fails every user-scoped call with err.
type failingStore struct {
	Backend
	err error
}

func (f failingStore) ListRoles(context.Context, int64) ([]Role, error) { return nil, f.err }

func (f failingStore) AttachRole(context.Context, int64, int64, time.Time) error { return f.err }

func (f failingStore) DetachRole(context.Context, int64, int64) (int64, error) { return 0, f.err }

func (f failingStore) ListUserPermissions(context.Context, int64) ([]Permission, error) {
	return nil, f.err
}

// fixture is a seeded MemoryStore:
//
//	admin     level 10  users.*
//	moderator level 5   posts.moderate
//	editor    level 2   posts.edit (model posts), articles.edit (model accesskit.article)
//	viewer    level 1   posts.view
type fixture struct {
	store *MemoryStore
	roles map[string]*Role
	perms map[string]*Permission
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		store: NewMemoryStore(),
		roles: make(map[string]*Role),
		perms: make(map[string]*Permission),
	}

	for _, p := range []*Permission{
		{Name: "Create users", Slug: "users.create"},
		{Name: "Delete users", Slug: "users.delete"},
		{Name: "Moderate posts", Slug: "posts.moderate"},
		{Name: "Edit posts", Slug: "posts.edit", Model: "posts"},
		{Name: "Edit articles", Slug: "articles.edit", Model: "accesskit.article"},
		{Name: "View posts", Slug: "posts.view"},
	} {
		require.NoError(t, f.store.CreatePermission(ctx, p))
		f.perms[p.Slug] = p
	}
	for _, r := range []*Role{
		{Name: "Admin", Slug: "admin", Level: 10},
		{Name: "Moderator", Slug: "moderator", Level: 5},
		{Name: "Editor", Slug: "editor", Level: 2},
		{Name: "Viewer", Slug: "viewer", Level: 1},
	} {
		require.NoError(t, f.store.CreateRole(ctx, r))
		f.roles[r.Slug] = r
	}

	f.grant(t, "admin", "users.create", "users.delete")
	f.grant(t, "moderator", "posts.moderate")
	f.grant(t, "editor", "posts.edit", "articles.edit")
	f.grant(t, "viewer", "posts.view")
	return f
}

func (f *fixture) grant(t *testing.T, role string, perms ...string) {
	t.Helper()
	for _, p := range perms {
		_, err := f.store.AttachRolePermission(context.Background(), f.roles[role].ID, f.perms[p].ID)
		require.NoError(t, err)
	}
}

func (f *fixture) give(t *testing.T, userID int64, roles ...string) {
	t.Helper()
	for _, r := range roles {
		require.NoError(t, f.store.AttachRole(context.Background(), userID, f.roles[r].ID, time.Now()))
	}
}

func (f *fixture) authorizer(userID int64, opts ...Option) *Authorizer {
	return NewAuthorizer(testUser{id: userID}, f.store, f.store, DefaultConfig(), opts...)
}

func slugsOf[T interface{ Role | Permission }](items []T) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := any(item).(type) {
		case Role:
			out = append(out, v.Slug)
		case Permission:
			out = append(out, v.Slug)
		}
	}
	return out
}

// ============================================================================
// DATABASE
// ============================================================================

// isDatabaseAvailable checks if the test database is available
func isDatabaseAvailable() bool {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	db, err := dbkit.New(dbkit.Config{URL: dbURL})
	if err != nil {
		return false
	}
	defer db.Close()

	return db.PingContext(ctx) == nil
}

// setupTestStore connects to TEST_DATABASE_URL, runs migrations and
// returns a Store. The test is skipped when no database is available.
func setupTestStore(t *testing.T) (*Store, *dbkit.DBKit) {
	t.Helper()
	if !isDatabaseAvailable() {
		t.Skip("database not available - set TEST_DATABASE_URL to run")
	}

	db, err := dbkit.New(dbkit.Config{URL: os.Getenv("TEST_DATABASE_URL")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewStore(db, DefaultModels())
	result, err := db.Migrate(context.Background(), store.Migrations())
	require.NoError(t, err)
	for _, m := range result.Applied {
		t.Logf("Applied migration: %s", m.ID)
	}
	return store, db
}

// uniqueSlug returns a slug that does not collide across test runs.
func uniqueSlug(prefix string) string {
	return fmt.Sprintf("%s.%d", prefix, time.Now().UnixNano())
}

// uniqueUserID returns a user ID that does not collide across test runs.
func uniqueUserID() int64 {
	return time.Now().UnixNano()
}
