package accesskit

import (
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
)

// patternCacheSize bounds the number of compiled patterns kept per matcher.
const patternCacheSize = 512

// SlugMatcher matches role and permission references against slugs.
//
// A reference is a pattern where "*" matches any sequence of characters and
// every other character is literal:
//
//	Match("admin", "admin")           // true
//	Match("users.*", "users.create")  // true
//	Match("*.create", "posts.create") // true
//	Match("*", "anything")            // true
//	Match("user", "users")            // false
type SlugMatcher struct {
	caseInsensitive bool
	compiled        *lru.Cache[string, glob.Glob]
}

// NewSlugMatcher creates a new SlugMatcher.
func NewSlugMatcher(caseInsensitive bool) *SlugMatcher {
	compiled, _ := lru.New[string, glob.Glob](patternCacheSize)
	return &SlugMatcher{
		caseInsensitive: caseInsensitive,
		compiled:        compiled,
	}
}

// Match reports whether pattern matches slug.
func (m *SlugMatcher) Match(pattern, slug string) bool {
	if m.caseInsensitive {
		pattern = strings.ToLower(pattern)
		slug = strings.ToLower(slug)
	}

	if pattern == slug {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return false
	}

	g, ok := m.compiled.Get(pattern)
	if !ok {
		var err error
		g, err = glob.Compile(globExpr(pattern))
		if err != nil {
			return false
		}
		m.compiled.Add(pattern, g)
	}
	return g.Match(slug)
}

// MatchRef reports whether ref names the entry with the given id and slug,
// either by its decimal ID or as a pattern over its slug.
func (m *SlugMatcher) MatchRef(ref string, id int64, slug string) bool {
	return ref == idString(id) || m.Match(ref, slug)
}

// globExpr quotes every glob meta character except "*".
func globExpr(pattern string) string {
	return strings.ReplaceAll(glob.QuoteMeta(pattern), `\*`, "*")
}

var refSeparator = regexp.MustCompile(` ?[,|] ?`)

// SplitRefs splits a reference list such as "admin|editor" or
// "admin, editor" into its parts.
func SplitRefs(refs string) []string {
	return refSeparator.Split(refs, -1)
}

// DefaultMatcher is the default, case-sensitive matcher instance.
var DefaultMatcher = NewSlugMatcher(false)

// MatchSlug is a convenience function using the default matcher.
func MatchSlug(pattern, slug string) bool {
	return DefaultMatcher.Match(pattern, slug)
}
