// Package policy holds the two externally persisted decision inputs for
// run_cmd: the approval policy and the sandbox policy. Both are versioned
// JSON files read fresh on every evaluation so external edits take effect on
// the next command.
package policy

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Cyclone1070/opal/internal/errutil"
)

// CurrentApprovalVersion is the supported approvals file schema version.
const CurrentApprovalVersion = 1

// ApprovalMode selects how the approval policy treats commands.
type ApprovalMode string

const (
	ApprovalDeny      ApprovalMode = "deny"
	ApprovalConfirm   ApprovalMode = "confirm"
	ApprovalAllowlist ApprovalMode = "allowlist"
)

// Valid reports whether m is a known mode.
func (m ApprovalMode) Valid() bool {
	switch m {
	case ApprovalDeny, ApprovalConfirm, ApprovalAllowlist:
		return true
	}
	return false
}

// ApprovalPolicy is the persisted approval rule set. The allowlist holds
// normalized (trimmed, lower-cased, deduplicated, sorted) command prefixes.
type ApprovalPolicy struct {
	Version   int          `json:"version"`
	Mode      ApprovalMode `json:"mode"`
	Allowlist []string     `json:"allowlist"`
}

// DefaultApprovalPolicy returns the policy used when no file exists.
func DefaultApprovalPolicy() ApprovalPolicy {
	return ApprovalPolicy{
		Version:   CurrentApprovalVersion,
		Mode:      ApprovalConfirm,
		Allowlist: []string{},
	}
}

// Normalize rewrites the allowlist into canonical form.
func (p *ApprovalPolicy) Normalize() {
	seen := make(map[string]struct{}, len(p.Allowlist))
	normalized := make([]string, 0, len(p.Allowlist))
	for _, prefix := range p.Allowlist {
		entry := normalizePrefix(prefix)
		if entry == "" {
			continue
		}
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		normalized = append(normalized, entry)
	}
	sort.Strings(normalized)
	p.Allowlist = normalized
}

// Validate checks the schema version.
func (p *ApprovalPolicy) Validate() error {
	if p.Version != CurrentApprovalVersion {
		return errutil.Newf(errutil.KindConfig,
			"unsupported approvals policy version %d, expected %d", p.Version, CurrentApprovalVersion)
	}
	if !p.Mode.Valid() {
		return errutil.Newf(errutil.KindValidation, "approvals mode %q is not one of deny, confirm, allowlist", p.Mode)
	}
	return nil
}

// MatchesAllowlist reports whether the command equals, or starts with, an
// allowlisted prefix followed by a space or '/'.
func (p *ApprovalPolicy) MatchesAllowlist(command string) bool {
	normalized := strings.ToLower(strings.TrimSpace(command))
	for _, prefix := range p.Allowlist {
		if normalized == prefix ||
			strings.HasPrefix(normalized, prefix+" ") ||
			strings.HasPrefix(normalized, prefix+"/") {
			return true
		}
	}
	return false
}

// ApprovalOutcome distinguishes the three evaluation results.
type ApprovalOutcome int

const (
	ApprovalAuto ApprovalOutcome = iota
	ApprovalNeedsConfirmation
	ApprovalDenied
)

// ApprovalDecision is the outcome of evaluating one command against the
// approval policy.
type ApprovalDecision struct {
	Outcome    ApprovalOutcome
	ApprovedBy string
	Reason     string
}

// EvaluateApproval is a pure function from command + policy to a decision.
func EvaluateApproval(command string, policy ApprovalPolicy) ApprovalDecision {
	switch policy.Mode {
	case ApprovalDeny:
		return ApprovalDecision{Outcome: ApprovalDenied, Reason: "approval mode is set to deny"}
	case ApprovalAllowlist:
		if policy.MatchesAllowlist(command) {
			return ApprovalDecision{Outcome: ApprovalAuto, ApprovedBy: "approval_allowlist"}
		}
		return ApprovalDecision{Outcome: ApprovalNeedsConfirmation, Reason: "command is not in approvals allowlist"}
	default:
		return ApprovalDecision{Outcome: ApprovalNeedsConfirmation, Reason: "approval mode requires confirmation"}
	}
}

// ApprovalStore persists the approval policy as a JSON file.
type ApprovalStore struct {
	path string
}

// NewApprovalStore creates a store backed by path.
func NewApprovalStore(path string) *ApprovalStore {
	return &ApprovalStore{path: path}
}

// Path returns the backing file path.
func (s *ApprovalStore) Path() string { return s.path }

// LoadOrDefault reads the policy, returning the default when no file exists.
// The loaded policy is validated and normalized.
func (s *ApprovalStore) LoadOrDefault() (ApprovalPolicy, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultApprovalPolicy(), nil
		}
		return ApprovalPolicy{}, errutil.Wrapf(errutil.KindIO, err, "reading approvals policy %s", s.path)
	}
	var policy ApprovalPolicy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return ApprovalPolicy{}, errutil.Wrapf(errutil.KindConfig, err, "invalid approvals policy %s", s.path)
	}
	if err := policy.Validate(); err != nil {
		return ApprovalPolicy{}, err
	}
	policy.Normalize()
	return policy, nil
}

// Save re-normalizes, re-validates and writes the policy.
func (s *ApprovalStore) Save(policy ApprovalPolicy) error {
	policy.Version = CurrentApprovalVersion
	policy.Normalize()
	if err := policy.Validate(); err != nil {
		return err
	}
	return writeJSONFile(s.path, policy)
}

// SetMode updates the mode and persists the result.
func (s *ApprovalStore) SetMode(mode ApprovalMode) (ApprovalPolicy, error) {
	if !mode.Valid() {
		return ApprovalPolicy{}, errutil.Newf(errutil.KindValidation, "approvals mode %q is not one of deny, confirm, allowlist", mode)
	}
	policy, err := s.LoadOrDefault()
	if err != nil {
		return ApprovalPolicy{}, err
	}
	policy.Mode = mode
	if err := s.Save(policy); err != nil {
		return ApprovalPolicy{}, err
	}
	return s.LoadOrDefault()
}

// AddAllowlist adds a normalized prefix and persists the result.
func (s *ApprovalStore) AddAllowlist(prefix string) (ApprovalPolicy, error) {
	normalized := normalizePrefix(prefix)
	if normalized == "" {
		return ApprovalPolicy{}, errutil.New(errutil.KindValidation, "allowlist prefix cannot be empty")
	}
	policy, err := s.LoadOrDefault()
	if err != nil {
		return ApprovalPolicy{}, err
	}
	policy.Allowlist = append(policy.Allowlist, normalized)
	if err := s.Save(policy); err != nil {
		return ApprovalPolicy{}, err
	}
	return s.LoadOrDefault()
}

// RemoveAllowlist removes a prefix and persists the result.
func (s *ApprovalStore) RemoveAllowlist(prefix string) (ApprovalPolicy, error) {
	normalized := normalizePrefix(prefix)
	policy, err := s.LoadOrDefault()
	if err != nil {
		return ApprovalPolicy{}, err
	}
	kept := policy.Allowlist[:0]
	for _, entry := range policy.Allowlist {
		if entry != normalized {
			kept = append(kept, entry)
		}
	}
	policy.Allowlist = kept
	if err := s.Save(policy); err != nil {
		return ApprovalPolicy{}, err
	}
	return s.LoadOrDefault()
}

func normalizePrefix(prefix string) string {
	return strings.ToLower(strings.TrimSpace(prefix))
}

func writeJSONFile(path string, value any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errutil.Wrapf(errutil.KindIO, err, "creating policy dir for %s", path)
	}
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errutil.Wrap(errutil.KindConfig, err, "encoding policy")
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return errutil.Wrapf(errutil.KindIO, err, "writing policy %s", path)
	}
	return nil
}
