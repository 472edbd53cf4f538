package policy

import "path/filepath"

// RuntimePolicy bundles both decision inputs for one run_cmd evaluation.
type RuntimePolicy struct {
	Approval ApprovalPolicy
	Sandbox  SandboxPolicy
}

// Loader produces a fresh RuntimePolicy per evaluation. Implementations must
// not cache: policy edits take effect on the next command.
type Loader interface {
	Load() (RuntimePolicy, error)
}

// FileLoader reads both policies from their JSON stores on every call.
type FileLoader struct {
	approvals *ApprovalStore
	sandbox   *SandboxStore
}

// NewFileLoader creates a FileLoader over the two stores.
func NewFileLoader(approvals *ApprovalStore, sandbox *SandboxStore) *FileLoader {
	return &FileLoader{approvals: approvals, sandbox: sandbox}
}

// Load reads both policy files fresh from disk.
func (l *FileLoader) Load() (RuntimePolicy, error) {
	approval, err := l.approvals.LoadOrDefault()
	if err != nil {
		return RuntimePolicy{}, err
	}
	sandbox, err := l.sandbox.LoadOrDefault()
	if err != nil {
		return RuntimePolicy{}, err
	}
	return RuntimePolicy{Approval: approval, Sandbox: sandbox}, nil
}

// DefaultPaths returns the conventional approvals and sandbox file paths
// under dataDir.
func DefaultPaths(dataDir string) (approvalsPath, sandboxPath string) {
	dir := filepath.Join(dataDir, "policy")
	return filepath.Join(dir, "approvals.json"), filepath.Join(dir, "sandbox.json")
}

// StaticLoader returns a fixed RuntimePolicy; used in tests and when the
// caller wants policy evaluation without persisted files.
type StaticLoader struct {
	Policy RuntimePolicy
}

// Load returns the fixed policy.
func (l StaticLoader) Load() (RuntimePolicy, error) {
	return l.Policy, nil
}
