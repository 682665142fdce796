package accesskit

// defaultFilterLimit caps admin listings when no limit is set.
const defaultFilterLimit = 100

// RoleFilter provides options for filtering role listings.
type RoleFilter struct {
	// Filter by slug pattern ("*" matches any sequence)
	Slug string

	// Filter by level range; zero means unbounded
	MinLevel int
	MaxLevel int

	// Pagination
	Limit  int
	Offset int
}

// NewRoleFilter creates a new RoleFilter with default values.
func NewRoleFilter() RoleFilter {
	return RoleFilter{
		Limit: defaultFilterLimit,
	}
}

// WithSlug sets the slug pattern filter.
func (f RoleFilter) WithSlug(pattern string) RoleFilter {
	f.Slug = pattern
	return f
}

// WithLevelRange sets the inclusive level range filter.
func (f RoleFilter) WithLevelRange(min, max int) RoleFilter {
	f.MinLevel = min
	f.MaxLevel = max
	return f
}

// WithMinLevel sets only the lower level bound.
func (f RoleFilter) WithMinLevel(min int) RoleFilter {
	f.MinLevel = min
	return f
}

// WithPagination sets both limit and offset.
func (f RoleFilter) WithPagination(limit, offset int) RoleFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

// matches reports whether role satisfies every set field of the filter.
func (f RoleFilter) matches(m *SlugMatcher, role Role) bool {
	if f.Slug != "" && !m.Match(f.Slug, role.Slug) {
		return false
	}
	if f.MinLevel != 0 && role.Level < f.MinLevel {
		return false
	}
	if f.MaxLevel != 0 && role.Level > f.MaxLevel {
		return false
	}
	return true
}

// PermissionFilter provides options for filtering permission listings.
type PermissionFilter struct {
	// Filter by slug pattern ("*" matches any sequence)
	Slug string

	// Filter by governed entity type
	Model string

	// Pagination
	Limit  int
	Offset int
}

// NewPermissionFilter creates a new PermissionFilter with default values.
func NewPermissionFilter() PermissionFilter {
	return PermissionFilter{
		Limit: defaultFilterLimit,
	}
}

// WithSlug sets the slug pattern filter.
func (f PermissionFilter) WithSlug(pattern string) PermissionFilter {
	f.Slug = pattern
	return f
}

// WithModel sets the entity type filter.
func (f PermissionFilter) WithModel(model string) PermissionFilter {
	f.Model = model
	return f
}

// WithPagination sets both limit and offset.
func (f PermissionFilter) WithPagination(limit, offset int) PermissionFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}

func (f PermissionFilter) matches(m *SlugMatcher, p Permission) bool {
	if f.Slug != "" && !m.Match(f.Slug, p.Slug) {
		return false
	}
	if f.Model != "" && p.Model != f.Model {
		return false
	}
	return true
}

// pageLimit returns the effective page size.
func pageLimit(limit int) int {
	if limit <= 0 {
		return defaultFilterLimit
	}
	return limit
}

// page slices items according to limit and offset.
func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	if offset > 0 {
		items = items[offset:]
	}
	if l := pageLimit(limit); len(items) > l {
		items = items[:l]
	}
	return items
}

// likePattern turns a slug pattern into an SQL LIKE pattern.
func likePattern(pattern string) string {
	var b []byte
	for i := 0; i < len(pattern); i++ {
		switch c := pattern[i]; c {
		case '*':
			b = append(b, '%')
		case '%', '_', '\\':
			b = append(b, '\\', c)
		default:
			b = append(b, c)
		}
	}
	return string(b)
}
