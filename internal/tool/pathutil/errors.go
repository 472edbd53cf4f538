package pathutil

import (
	"errors"
	"fmt"
)

// Sentinel errors for workspace path resolution.
var (
	ErrOutsideWorkspace    = errors.New("path is outside workspace")
	ErrWorkspaceRootNotSet = errors.New("workspace root is not set")
	ErrNotADirectory       = errors.New("workspace root is not a directory")
)

// WorkspaceRootError is returned when the workspace root itself cannot be
// canonicalised.
type WorkspaceRootError struct {
	Root  string
	Cause error
}

func (e *WorkspaceRootError) Error() string {
	return fmt.Sprintf("failed to resolve workspace root %s: %v", e.Root, e.Cause)
}
func (e *WorkspaceRootError) Unwrap() error { return e.Cause }

// ResolveError is returned when a candidate path cannot be canonicalised.
type ResolveError struct {
	Path  string
	Cause error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("failed to resolve %s: %v", e.Path, e.Cause)
}
func (e *ResolveError) Unwrap() error { return e.Cause }
