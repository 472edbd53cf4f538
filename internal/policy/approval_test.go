package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cyclone1070/opal/internal/errutil"
)

func TestNormalizeDedupesAndSorts(t *testing.T) {
	policy := ApprovalPolicy{
		Version:   CurrentApprovalVersion,
		Mode:      ApprovalAllowlist,
		Allowlist: []string{" Go Test ", "cargo test", "go test", "", "CARGO TEST"},
	}
	policy.Normalize()
	assert.Equal(t, []string{"cargo test", "go test"}, policy.Allowlist)
}

func TestMatchesAllowlist(t *testing.T) {
	policy := ApprovalPolicy{
		Version:   CurrentApprovalVersion,
		Mode:      ApprovalAllowlist,
		Allowlist: []string{"cargo test", "bin"},
	}
	tests := []struct {
		command string
		want    bool
	}{
		{"cargo test", true},
		{"cargo test --workspace", true},
		{"CARGO TEST --workspace", true},
		{"bin/run", true},
		{"cargo run", false},
		{"cargo testx", false},
		{"binx", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, policy.MatchesAllowlist(tt.command), "command %q", tt.command)
	}
}

func TestEvaluateApproval(t *testing.T) {
	deny := ApprovalPolicy{Version: 1, Mode: ApprovalDeny}
	confirm := ApprovalPolicy{Version: 1, Mode: ApprovalConfirm}
	allowlist := ApprovalPolicy{Version: 1, Mode: ApprovalAllowlist, Allowlist: []string{"go test"}}

	assert.Equal(t, ApprovalDenied, EvaluateApproval("ls", deny).Outcome)
	assert.Equal(t, ApprovalNeedsConfirmation, EvaluateApproval("ls", confirm).Outcome)

	auto := EvaluateApproval("go test ./...", allowlist)
	assert.Equal(t, ApprovalAuto, auto.Outcome)
	assert.Equal(t, "approval_allowlist", auto.ApprovedBy)

	assert.Equal(t, ApprovalNeedsConfirmation, EvaluateApproval("go build", allowlist).Outcome)
}

func TestApprovalStoreRoundTrip(t *testing.T) {
	store := NewApprovalStore(filepath.Join(t.TempDir(), "policy", "approvals.json"))

	policy, err := store.LoadOrDefault()
	require.NoError(t, err)
	assert.Equal(t, ApprovalConfirm, policy.Mode)

	policy, err = store.SetMode(ApprovalAllowlist)
	require.NoError(t, err)
	assert.Equal(t, ApprovalAllowlist, policy.Mode)

	policy, err = store.AddAllowlist("  Go Test ")
	require.NoError(t, err)
	assert.Equal(t, []string{"go test"}, policy.Allowlist)

	policy, err = store.RemoveAllowlist("go test")
	require.NoError(t, err)
	assert.Empty(t, policy.Allowlist)
}

func TestApprovalStoreRejectsEmptyPrefix(t *testing.T) {
	store := NewApprovalStore(filepath.Join(t.TempDir(), "approvals.json"))
	_, err := store.AddAllowlist("   ")
	require.Error(t, err)
	assert.Equal(t, errutil.KindValidation, errutil.KindOf(err))
}

func TestApprovalStoreRejectsVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 9, "mode": "confirm"}`), 0o644))
	_, err := NewApprovalStore(path).LoadOrDefault()
	require.Error(t, err)
	assert.Equal(t, errutil.KindConfig, errutil.KindOf(err))
}
