package tenant

import (
	"regexp"
	"strings"
)

// slugPattern matches valid tenant slugs: lowercase, starts with a
// letter, ends with a letter or digit, 3 to 63 characters total.
var slugPattern = regexp.MustCompile(`^[a-z][a-z0-9-]{1,61}[a-z0-9]$`)

// ValidSlug reports whether s is a well-formed tenant slug.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// SplitSlug splits the first path segment off path.
// "/acme/api/orders" yields ("acme", "/api/orders", true).
// "/" and "" yield ok == false. The remainder is never empty; a path
// consisting of only the slug yields "/".
func SplitSlug(path string) (slug, rest string, ok bool) {
	if len(path) <= 1 {
		return "", path, false
	}
	trimmed := strings.TrimPrefix(path, "/")
	if idx := strings.IndexByte(trimmed, '/'); idx > 0 {
		slug, rest = trimmed[:idx], trimmed[idx:]
	} else {
		slug, rest = trimmed, "/"
	}
	if !ValidSlug(slug) {
		return "", path, false
	}
	return slug, rest, true
}
