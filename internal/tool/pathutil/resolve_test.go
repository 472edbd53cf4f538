package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func canonicalTempDir(t *testing.T) string {
	t.Helper()
	root, err := CanonicaliseRoot(t.TempDir())
	if err != nil {
		t.Fatalf("canonicalise temp dir: %v", err)
	}
	return root
}

func TestResolve(t *testing.T) {
	root := canonicalTempDir(t)
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	resolver := NewResolver(root)

	tests := []struct {
		name     string
		input    string
		expected string
		err      error
	}{
		{
			name:     "relative path within workspace",
			input:    "src/main.go",
			expected: filepath.Join(root, "src", "main.go"),
		},
		{
			name:     "absolute path within workspace",
			input:    filepath.Join(root, "src", "main.go"),
			expected: filepath.Join(root, "src", "main.go"),
		},
		{
			name:     "path with dots within workspace",
			input:    "src/../src/main.go",
			expected: filepath.Join(root, "src", "main.go"),
		},
		{
			name:     "workspace root itself",
			input:    ".",
			expected: root,
		},
		{
			name:  "escape attempt via parent dots",
			input: "../../../etc/passwd",
			err:   ErrOutsideWorkspace,
		},
		{
			name:  "absolute path outside workspace",
			input: "/etc/passwd",
			err:   ErrOutsideWorkspace,
		},
		{
			name:  "prefix match but not child",
			input: root + "extra/file.txt",
			err:   ErrOutsideWorkspace,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			abs, err := resolver.Resolve(tt.input)
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected error %v, got %v", tt.err, err)
			}
			if tt.err == nil && abs != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, abs)
			}
		})
	}
}

func TestResolveNonExistentWriteTarget(t *testing.T) {
	root := canonicalTempDir(t)
	resolver := NewResolver(root)

	abs, err := resolver.Resolve("notes/new/deep/file.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(root, "notes", "new", "deep", "file.txt")
	if abs != want {
		t.Errorf("expected %q, got %q", want, abs)
	}
}

func TestResolveSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink semantics differ on windows")
	}
	root := canonicalTempDir(t)
	outside := canonicalTempDir(t)

	// A symlink inside the workspace pointing outside must not pass the
	// boundary check, even for paths created underneath it.
	link := filepath.Join(root, "exit")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatal(err)
	}

	resolver := NewResolver(root)
	if _, err := resolver.Resolve("exit/secrets.txt"); !errors.Is(err, ErrOutsideWorkspace) {
		t.Fatalf("expected ErrOutsideWorkspace, got %v", err)
	}
}

func TestResolveEmptyRoot(t *testing.T) {
	resolver := NewResolver("")
	if _, err := resolver.Resolve("anything"); !errors.Is(err, ErrWorkspaceRootNotSet) {
		t.Fatalf("expected ErrWorkspaceRootNotSet, got %v", err)
	}
}

func TestCanonicaliseRootRejectsFile(t *testing.T) {
	root := canonicalTempDir(t)
	file := filepath.Join(root, "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := CanonicaliseRoot(file); !errors.Is(err, ErrNotADirectory) {
		t.Fatalf("expected ErrNotADirectory, got %v", err)
	}
}
