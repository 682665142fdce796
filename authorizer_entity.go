package accesskit

import (
	"context"
	"reflect"
)

// DefaultOwnerColumn is the owner column consulted by Allowed.
const DefaultOwnerColumn = "user_id"

type allowedOptions struct {
	owner       bool
	ownerColumn string
}

// AllowedOption configures a single Allowed check.
type AllowedOption func(*allowedOptions)

// WithoutOwnerCheck disables the ownership bypass.
func WithoutOwnerCheck() AllowedOption {
	return func(o *allowedOptions) {
		o.owner = false
	}
}

// WithOwnerCheck turns the ownership bypass on or off.
func WithOwnerCheck(enabled bool) AllowedOption {
	return func(o *allowedOptions) {
		o.owner = enabled
	}
}

// WithOwnerColumn sets the owner column passed to Ownable.OwnerID.
func WithOwnerColumn(column string) AllowedOption {
	return func(o *allowedOptions) {
		o.ownerColumn = column
	}
}

// Allowed checks if the user may act on entity under permission ref.
//
// The owner of the entity is always allowed unless WithoutOwnerCheck is
// given. Otherwise a permission grants access when its Model equals the
// entity type and its ID or slug equals ref exactly. Slug patterns are not
// expanded here, unlike Is and Can.
//
// Example:
//
//	ok, err := auth.Allowed(ctx, "edit.articles", article)
//	ok, err = auth.Allowed(ctx, "edit.articles", article, accesskit.WithOwnerColumn("author_id"))
func (a *Authorizer) Allowed(ctx context.Context, ref string, entity any, opts ...AllowedOption) (bool, error) {
	if a.config.Pretend.Enabled {
		return a.pretend("allowed"), nil
	}

	o := allowedOptions{owner: true, ownerColumn: DefaultOwnerColumn}
	for _, opt := range opts {
		opt(&o)
	}

	if o.owner && a.owns(entity, o.ownerColumn) {
		a.logger.Debug().Str("operation", "allowed").Str("permission", ref).Msg("owner bypass")
		return true, nil
	}
	return a.isAllowed(ctx, ref, entity)
}

func (a *Authorizer) owns(entity any, column string) bool {
	ownable, ok := entity.(Ownable)
	if !ok {
		return false
	}
	ownerID, ok := ownable.OwnerID(column)
	return ok && ownerID == a.user.UserID()
}

func (a *Authorizer) isAllowed(ctx context.Context, ref string, entity any) (bool, error) {
	perms, err := a.GetPermissions(ctx)
	if err != nil {
		return false, err
	}

	entityType := EntityTypeOf(entity)
	for _, p := range perms {
		if p.Model == "" || p.Model != entityType {
			continue
		}
		if idString(p.ID) == ref || p.Slug == ref {
			return true, nil
		}
	}
	return false, nil
}

// EntityTypeOf returns the type name entity-scoped permissions are compared
// against: EntityType() when implemented, otherwise the Go type without
// pointer indirection (e.g. "blog.Article").
func EntityTypeOf(entity any) string {
	if entity == nil {
		return ""
	}
	if typer, ok := entity.(EntityTyper); ok {
		return typer.EntityType()
	}
	t := reflect.TypeOf(entity)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.String()
}
