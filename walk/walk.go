// Package walk exposes the bounded, cancellable directory traversal used by
// the poller, for callers that want a one-shot snapshot of a tree.
package walk

import (
	"context"
	"regexp"

	internal "github.com/TFMV/pollwatch/internal/walk"
	"go.uber.org/zap"
)

// Re-export the traversal types from the internal package
type (
	// Snapshot holds every directory and file found by one traversal.
	Snapshot = internal.Snapshot

	// Constraints bound a traversal: depth, entry limit, symlinks, ignore.
	Constraints = internal.Constraints

	// IgnoreFunc reports whether a path should be left out of a traversal.
	IgnoreFunc = internal.IgnoreFunc

	// LogLevel defines the verbosity of logging.
	LogLevel = internal.LogLevel
)

// Log levels
const (
	LogLevelError = internal.LogLevelError
	LogLevelWarn  = internal.LogLevelWarn
	LogLevelInfo  = internal.LogLevelInfo
	LogLevelDebug = internal.LogLevelDebug
)

// Traverse lists all directories and files under root.
func Traverse(ctx context.Context, root string, c Constraints) (Snapshot, error) {
	return internal.Traverse(ctx, root, c)
}

// Stat returns the modification time of path in milliseconds since the Unix epoch.
func Stat(path string) (int64, error) {
	return internal.Stat(path)
}

// IgnorePatterns returns an IgnoreFunc for gitignore style patterns relative to root.
func IgnorePatterns(root string, patterns []string) IgnoreFunc {
	return internal.IgnorePatterns(root, patterns)
}

// IgnoreRegexp returns an IgnoreFunc matching absolute paths against re.
func IgnoreRegexp(re *regexp.Regexp) IgnoreFunc {
	return internal.IgnoreRegexp(re)
}

// AnyIgnore combines several IgnoreFuncs.
func AnyIgnore(fns ...IgnoreFunc) IgnoreFunc {
	return internal.AnyIgnore(fns...)
}

// NewLogger creates a zap logger with the specified log level.
func NewLogger(level LogLevel) *zap.Logger {
	return internal.NewLogger(level)
}
