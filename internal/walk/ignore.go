package walk

import (
	"path/filepath"
	"regexp"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
	"golang.org/x/text/unicode/norm"
)

// IgnoreFunc reports whether an absolute path should be left out of a traversal.
// isDir is true for directories, including followed links to directories. An
// ignored directory is not descended into.
type IgnoreFunc func(path string, isDir bool) bool

// IgnoreRegexp returns an IgnoreFunc matching the NFC normalized absolute path against re.
func IgnoreRegexp(re *regexp.Regexp) IgnoreFunc {
	if re == nil {
		return nil
	}
	return func(path string, _ bool) bool {
		return re.MatchString(norm.NFC.String(path))
	}
}

// IgnorePatterns returns an IgnoreFunc for gitignore style patterns. Patterns are
// matched against the path relative to root, using forward slashes. A pattern
// with a trailing slash only matches directories and what lies below them.
func IgnorePatterns(root string, patterns []string) IgnoreFunc {
	lines := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			lines = append(lines, norm.NFC.String(p))
		}
	}
	if len(lines) == 0 {
		return nil
	}

	matcher := ignore.CompileIgnoreLines(lines...)
	root = filepath.Clean(root)

	return func(path string, isDir bool) bool {
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
			return false
		}
		rel = norm.NFC.String(filepath.ToSlash(rel))
		if isDir {
			return matcher.MatchesPath(rel + "/")
		}
		return matcher.MatchesPath(rel)
	}
}

// AnyIgnore combines several IgnoreFuncs; nil entries are skipped.
func AnyIgnore(fns ...IgnoreFunc) IgnoreFunc {
	var active []IgnoreFunc
	for _, fn := range fns {
		if fn != nil {
			active = append(active, fn)
		}
	}
	switch len(active) {
	case 0:
		return nil
	case 1:
		return active[0]
	}
	return func(path string, isDir bool) bool {
		for _, fn := range active {
			if fn(path, isDir) {
				return true
			}
		}
		return false
	}
}
