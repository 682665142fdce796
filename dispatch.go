package accesskit

import (
	"context"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
)

// FallbackFunc handles dynamic calls that match none of the known prefixes.
type FallbackFunc func(ctx context.Context, method string, args []any) (bool, error)

// MethodKind identifies which check a dynamic method resolves to.
type MethodKind int

const (
	MethodIs MethodKind = iota + 1
	MethodCan
	MethodAllowed
)

// String returns the prefix of the method kind.
func (k MethodKind) String() string {
	switch k {
	case MethodIs:
		return "is"
	case MethodCan:
		return "can"
	case MethodAllowed:
		return "allowed"
	}
	return "unknown"
}

// Method is a parsed dynamic method name such as "isEditor" or "canManageUsers".
type Method struct {
	Name string
	Kind MethodKind
	Slug string
}

// Prefixes are tried in this order.
var methodPrefixes = []struct {
	prefix string
	kind   MethodKind
}{
	{"is", MethodIs},
	{"can", MethodCan},
	{"allowed", MethodAllowed},
}

// ParseMethod splits a dynamic method name into its check and slug. The part
// after the prefix is converted from camel case to words joined by separator:
//
//	ParseMethod("isEditor", ".")           // {Kind: MethodIs, Slug: "editor"}
//	ParseMethod("canManageUsers", "_")     // {Kind: MethodCan, Slug: "manage_users"}
//	ParseMethod("allowedEditArticle", ".") // {Kind: MethodAllowed, Slug: "edit.article"}
//
// It reports false when name has no known prefix or nothing after it.
func ParseMethod(name, separator string) (Method, bool) {
	for _, p := range methodPrefixes {
		if !strings.HasPrefix(name, p.prefix) || len(name) == len(p.prefix) {
			continue
		}
		return Method{
			Name: name,
			Kind: p.kind,
			Slug: Slugify(name[len(p.prefix):], separator),
		}, true
	}
	return Method{}, false
}

// Slugify converts a camel-case or spaced name to lower-case words joined by
// the first byte of separator ("." when empty). A digit run stays attached
// to the word before it ("EditV2" -> "edit.v2", "Level2Admin" -> "level2.admin").
func Slugify(name, separator string) string {
	sep := uint8('.')
	if separator != "" {
		sep = separator[0]
	}
	words := strcase.ToDelimited(name, sep)

	var b strings.Builder
	b.Grow(len(words))
	for i := 0; i < len(words); i++ {
		if words[i] == sep && i > 0 && i+1 < len(words) && isDigit(words[i+1]) && !isDigit(words[i-1]) && words[i-1] != sep {
			continue
		}
		b.WriteByte(words[i])
	}
	return b.String()
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Call resolves a dynamic method name and runs the matching check:
//
//	auth.Call(ctx, "isAdmin")                       // Is(ctx, "admin", false)
//	auth.Call(ctx, "canCreateUsers")                // Can(ctx, "create.users", false)
//	auth.Call(ctx, "allowedEditArticle", article)   // Allowed(ctx, "edit.article", article)
//	auth.Call(ctx, "allowedEditArticle", article, false, "author_id")
//
// Names without a known prefix go to the fallback set with WithFallback, or
// fail with ErrMethodNotFound.
func (a *Authorizer) Call(ctx context.Context, name string, args ...any) (bool, error) {
	m, ok := ParseMethod(name, a.config.Separator)
	if !ok {
		if a.fallback != nil {
			return a.fallback(ctx, name, args)
		}
		return false, NewError(ErrMethodNotFound, fmt.Sprintf("call to undefined method %s", name)).
			WithMethod(name).
			WithUser(a.user.UserID())
	}

	a.logger.Debug().Str("operation", "dispatch").Str("method", name).Str("slug", m.Slug).Msg("dynamic call resolved")

	switch m.Kind {
	case MethodIs:
		return a.Is(ctx, m.Slug, false)
	case MethodCan:
		return a.Can(ctx, m.Slug, false)
	default:
		entity, opts, err := allowedArgs(name, args)
		if err != nil {
			return false, err
		}
		return a.Allowed(ctx, m.Slug, entity, opts...)
	}
}

// allowedArgs maps positional (entity, owner, ownerColumn) arguments.
func allowedArgs(name string, args []any) (any, []AllowedOption, error) {
	if len(args) == 0 {
		return nil, nil, NewError(ErrInvalidArgument, "missing entity argument").WithMethod(name)
	}

	// nil stands for an omitted argument.
	var opts []AllowedOption
	if len(args) > 1 && args[1] != nil {
		owner, ok := args[1].(bool)
		if !ok {
			return nil, nil, NewError(ErrInvalidArgument, fmt.Sprintf("owner must be a bool, got %T", args[1])).WithMethod(name)
		}
		opts = append(opts, WithOwnerCheck(owner))
	}
	if len(args) > 2 && args[2] != nil {
		column, ok := args[2].(string)
		if !ok {
			return nil, nil, NewError(ErrInvalidArgument, fmt.Sprintf("owner column must be a string, got %T", args[2])).WithMethod(name)
		}
		opts = append(opts, WithOwnerColumn(column))
	}
	return args[0], opts, nil
}
