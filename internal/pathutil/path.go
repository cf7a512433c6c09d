// Package pathutil provides path manipulation for slash-separated archive paths.
package pathutil

import "strings"

// Normalize converts an archived pathname to fs.ValidPath form.
//
// It performs the following transformations:
//   - Converts backslashes to slashes: `Assets\Foo` → "Assets/Foo"
//   - Strips leading and trailing slashes: "/Assets/Foo/" → "Assets/Foo"
//   - Collapses consecutive slashes: "Assets//Foo" → "Assets/Foo"
//   - Converts empty string to root: "" → "."
//
// Note: "." and ".." elements are preserved; callers reject them with
// fs.ValidPath.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.Trim(p, "/")
	if p == "" {
		return "."
	}

	parts := strings.Split(p, "/")
	result := parts[:0] // reuse backing array
	for _, part := range parts {
		if part != "" {
			result = append(result, part)
		}
	}
	if len(result) == 0 {
		return "."
	}
	return strings.Join(result, "/")
}

// StripRoot removes the first element of a slash-separated path.
// A path with a single element is returned unchanged.
func StripRoot(p string) string {
	if _, rest, ok := strings.Cut(p, "/"); ok {
		return rest
	}
	return p
}

// WithPrefix prepends a logical root such as "Assets/" to rel.
// An empty prefix returns rel unchanged.
func WithPrefix(prefix, rel string) string {
	if prefix == "" {
		return rel
	}
	return prefix + rel
}

// Base returns the last element of a slash-separated path.
// If path is empty or ".", it returns ".".
func Base(path string) string {
	if path == "" || path == "." {
		return "."
	}
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// IsHidden reports whether the last element of path starts with a dot.
func IsHidden(path string) bool {
	return strings.HasPrefix(Base(path), ".") && path != "." && path != ""
}
