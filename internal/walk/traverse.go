// Package walk provides the filesystem collaborators of the poller: a bounded,
// cancellable directory traversal built on godirwalk and a modification time stat.
package walk

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/karrick/godirwalk"
)

var errLimitReached = errors.New("walk: entry limit reached")

// Snapshot holds every directory and file found by one traversal. The root
// itself is never included.
type Snapshot struct {
	Directories []string
	Files       []string
}

// Len returns the number of entries in the snapshot.
func (s Snapshot) Len() int {
	return len(s.Directories) + len(s.Files)
}

// Constraints bound a traversal.
type Constraints struct {
	Depth          int        // Maximum depth, entries directly under root are depth 1 (0 = unlimited)
	Limit          int        // Maximum number of entries collected (0 = unlimited)
	FollowSymlinks bool       // Whether to follow symbolic links
	Ignore         IgnoreFunc // Paths to leave out
}

// Traverse lists all directories and files under root. Unreadable entries are
// skipped, a missing root yields an empty snapshot, and cancellation of ctx
// aborts the walk with ctx.Err() and no partial result.
//
// A root that is itself a symbolic link is resolved before walking and entries
// are reported under root as given. FollowSymlinks only governs links below it.
func Traverse(ctx context.Context, root string, c Constraints) (Snapshot, error) {
	root = filepath.Clean(root)

	walkRoot, err := resolveRoot(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("error reading root %s: %w", root, err)
	}

	var snap Snapshot
	visited := make(map[string]struct{})

	options := &godirwalk.Options{
		FollowSymbolicLinks: c.FollowSymlinks,
		Callback: func(osPath string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if osPath == walkRoot {
				return nil
			}
			path := underRoot(root, walkRoot, osPath)

			isDir := de.IsDir()
			if de.IsSymlink() {
				if !c.FollowSymlinks {
					return nil
				}
				var err error
				if isDir, err = de.IsDirOrSymlinkToDir(); err != nil {
					return nil // Dangling link
				}
				if isDir && isCyclicSymlink(osPath, visited) {
					return godirwalk.SkipThis
				}
			}

			if c.Ignore != nil && c.Ignore(path, isDir) {
				if isDir {
					return godirwalk.SkipThis
				}
				return nil
			}

			depth := depthOf(root, path)
			if c.Depth > 0 && depth > c.Depth {
				if isDir {
					return godirwalk.SkipThis
				}
				return nil
			}

			if c.Limit > 0 && snap.Len() >= c.Limit {
				return errLimitReached
			}

			if !isDir {
				snap.Files = append(snap.Files, path)
				return nil
			}
			snap.Directories = append(snap.Directories, path)
			if c.Depth > 0 && depth >= c.Depth {
				return godirwalk.SkipThis
			}
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			if errors.Is(err, errLimitReached) || ctx.Err() != nil {
				return godirwalk.Halt
			}
			return godirwalk.SkipNode
		},
	}

	err = godirwalk.Walk(walkRoot, options)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Snapshot{}, ctxErr
	}
	if err != nil && !errors.Is(err, errLimitReached) {
		return Snapshot{}, fmt.Errorf("error walking %s: %w", root, err)
	}
	return snap, nil
}

// resolveRoot returns the directory to walk for root, following root itself
// when it is a symbolic link.
func resolveRoot(root string) (string, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return "", err
	}
	if info.Mode()&os.ModeSymlink == 0 {
		return root, nil
	}
	resolved, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(resolved); err != nil {
		return "", err
	}
	return resolved, nil
}

// underRoot maps a path found below walkRoot back under root.
func underRoot(root, walkRoot, path string) string {
	if root == walkRoot {
		return path
	}
	rel, err := filepath.Rel(walkRoot, path)
	if err != nil {
		return path
	}
	return filepath.Join(root, rel)
}

// depthOf returns the number of path elements between root and path.
func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(os.PathSeparator)) + 1
}

// isCyclicSymlink reports whether following the directory link at path would
// revisit a directory: either one of its own ancestors or a target already
// reached through another link during this traversal.
func isCyclicSymlink(path string, visited map[string]struct{}) bool {
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		return true
	}
	realParent, err := filepath.EvalSymlinks(filepath.Dir(path))
	if err != nil {
		return true
	}
	if realParent == realPath || strings.HasPrefix(realParent, realPath+string(os.PathSeparator)) {
		return true
	}
	if _, seen := visited[realPath]; seen {
		return true
	}
	visited[realPath] = struct{}{}
	return false
}
