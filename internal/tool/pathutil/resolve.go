// Package pathutil enforces workspace containment: file tool operations must
// never resolve to a path outside the configured working directory, even
// through symlinks or not-yet-existing paths.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolver provides path resolution within a workspace boundary.
type Resolver struct {
	workspaceRoot string
}

// NewResolver creates a resolver for an already-canonicalised workspace root.
func NewResolver(workspaceRoot string) *Resolver {
	return &Resolver{workspaceRoot: workspaceRoot}
}

// Root returns the canonical workspace root.
func (r *Resolver) Root() string { return r.workspaceRoot }

// CanonicaliseRoot canonicalises a workspace root path by making it absolute
// and resolving symlinks. Returns an error if the path doesn't exist or
// isn't a directory.
func CanonicaliseRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", &WorkspaceRootError{Root: root, Cause: err}
	}
	resolved, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", &WorkspaceRootError{Root: absRoot, Cause: err}
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", &WorkspaceRootError{Root: resolved, Cause: err}
	}
	if !info.IsDir() {
		return "", &WorkspaceRootError{Root: resolved, Cause: ErrNotADirectory}
	}
	return resolved, nil
}

// Resolve makes a user-supplied path absolute against the workspace root and
// validates it stays inside the boundary. The candidate is canonicalised
// virtually: if it doesn't exist yet (a write target), the nearest existing
// ancestor is canonicalised and the remaining suffix re-appended, so symlink
// escapes are caught for paths that are about to be created.
func (r *Resolver) Resolve(userPath string) (string, error) {
	if r.workspaceRoot == "" {
		return "", ErrWorkspaceRootNotSet
	}

	var abs string
	if filepath.IsAbs(userPath) {
		abs = filepath.Clean(userPath)
	} else {
		abs = filepath.Clean(filepath.Join(r.workspaceRoot, userPath))
	}

	candidate, err := canonicaliseVirtual(abs)
	if err != nil {
		return "", err
	}

	if candidate != r.workspaceRoot && !strings.HasPrefix(candidate, r.workspaceRoot+string(filepath.Separator)) {
		return "", ErrOutsideWorkspace
	}
	return candidate, nil
}

// canonicaliseVirtual resolves symlinks for a path that may not exist: it
// walks up to the nearest existing ancestor, canonicalises that, and joins
// the non-existent suffix back on.
func canonicaliseVirtual(path string) (string, error) {
	if _, err := os.Lstat(path); err == nil {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return "", &ResolveError{Path: path, Cause: err}
		}
		return resolved, nil
	}

	anchor := path
	for {
		parent := filepath.Dir(anchor)
		if parent == anchor {
			return "", &ResolveError{Path: path, Cause: os.ErrNotExist}
		}
		anchor = parent
		if _, err := os.Lstat(anchor); err == nil {
			break
		}
	}

	anchored, err := filepath.EvalSymlinks(anchor)
	if err != nil {
		return "", &ResolveError{Path: anchor, Cause: err}
	}
	suffix, err := filepath.Rel(anchor, path)
	if err != nil {
		return "", &ResolveError{Path: path, Cause: err}
	}
	return filepath.Join(anchored, suffix), nil
}
