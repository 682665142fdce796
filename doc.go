// Package accesskit provides role and permission based authorization for a
// user entity.
//
// An Authorizer is attached to a user and answers three questions: does the
// user hold a role, does the user hold a permission (directly or through a
// role), and may the user act on a given domain entity.
//
// # Core Concepts
//
// Role: A named privilege bundle with a slug (e.g. "admin") and an integer
// level. Higher levels are more privileged.
//
// Permission: A named capability with a slug (e.g. "articles.edit"). A
// permission with a Model only governs entities of that type.
//
// Level inheritance: A user also receives every permission attached to a role
// whose level is strictly below the user's highest role level.
//
// References: Checks take a reference string. A reference matches a role or
// permission by its decimal ID or as a pattern over its slug, where "*" matches
// any sequence. Several references can be joined with "," or "|".
//
// # Key Features
//
//   - Role and permission checks with any/all semantics
//   - Level based permission inheritance
//   - Entity-scoped permissions with an ownership bypass
//   - Per-user caches dropped on every attach and detach
//   - Pretend mode to stub every check in tests and demos
//   - Dynamic checks by name: isEditor, canEditArticles, allowedEditArticle
//   - DBKit integration: Uses your existing database connection
//
// # Basic Usage
//
//	// 1. Define roles and permissions (at application startup)
//	registry := accesskit.NewRegistry()
//
//	registry.Permission("articles.create").
//	    Permission("articles.edit").Model("articles").
//	    Role("admin").Level(10).Permissions("*").
//	    Role("editor").Level(5).Permissions("articles.*").
//	    Role("author").Level(1).Permissions("articles.create")
//
//	// 2. Create the store and service
//	store := accesskit.NewStore(db, cfg.Models)
//	store.Migrate(ctx)
//	service, _ := accesskit.NewService(store, cfg, logger)
//	service.Seed(ctx, registry)
//
//	// 3. Check a user
//	auth := service.ForID(userID)
//	if ok, _ := auth.Is(ctx, "admin|editor", false); ok {
//	    // User is an admin or an editor
//	}
//	if ok, _ := auth.Allowed(ctx, "articles.edit", article); ok {
//	    // User owns the article or may edit articles
//	}
//
// # Middleware Usage
//
//	mw := accesskit.NewMiddleware(service)
//
//	mux.Handle("/admin", mw.RequireRole("admin")(adminHandler))
//	mux.Handle("POST /articles", mw.RequirePermission("articles.create")(createHandler))
//	mux.Handle("/reports", mw.RequireLevel(5)(reportsHandler))
//
// # Pretend Mode
//
// With roles.pretend.enabled set, Is, Can and Allowed return the configured
// stub results without touching the store.
package accesskit
