package policy

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/Cyclone1070/opal/internal/errutil"
)

// CurrentSandboxVersion is the supported sandbox file schema version.
const CurrentSandboxVersion = 1

// SandboxProfile is the persisted restriction level.
type SandboxProfile string

const (
	SandboxRestricted SandboxProfile = "restricted"
	SandboxStandard   SandboxProfile = "standard"
	SandboxElevated   SandboxProfile = "elevated"
)

// Valid reports whether p is a known profile.
func (p SandboxProfile) Valid() bool {
	switch p {
	case SandboxRestricted, SandboxStandard, SandboxElevated:
		return true
	}
	return false
}

// SandboxPolicy is the persisted sandbox configuration.
type SandboxPolicy struct {
	Version int            `json:"version"`
	Profile SandboxProfile `json:"profile"`
}

// DefaultSandboxPolicy returns the policy used when no file exists.
func DefaultSandboxPolicy() SandboxPolicy {
	return SandboxPolicy{Version: CurrentSandboxVersion, Profile: SandboxStandard}
}

// Validate checks the schema version and profile.
func (p *SandboxPolicy) Validate() error {
	if p.Version != CurrentSandboxVersion {
		return errutil.Newf(errutil.KindConfig,
			"unsupported sandbox policy version %d, expected %d", p.Version, CurrentSandboxVersion)
	}
	if !p.Profile.Valid() {
		return errutil.Newf(errutil.KindValidation, "sandbox profile %q is not one of restricted, standard, elevated", p.Profile)
	}
	return nil
}

// restrictedPatterns are the network/system command shapes the restricted
// profile vetoes unconditionally.
var restrictedPatterns = []string{
	"curl ",
	"wget ",
	"ssh ",
	"scp ",
	"nc ",
	"ncat ",
	"telnet ",
	"docker ",
	"kubectl ",
	"sudo ",
	"brew install",
	"apt-get",
}

// EvaluateSandbox returns a denial reason when the profile vetoes the
// command, or "" when it passes. The veto cannot be bypassed by --yes or
// interactive confirmation.
func EvaluateSandbox(command string, profile SandboxProfile) string {
	if profile != SandboxRestricted {
		return ""
	}
	normalized := strings.ToLower(strings.TrimSpace(command))
	for _, pattern := range restrictedPatterns {
		if strings.HasPrefix(normalized, pattern) || strings.Contains(normalized, pattern) {
			return "sandbox profile 'restricted' blocks network/system commands"
		}
	}
	return ""
}

// SandboxProfileInfo describes one profile for the CLI catalog.
type SandboxProfileInfo struct {
	Profile         SandboxProfile `json:"profile"`
	Description     string         `json:"description"`
	BlockedExamples []string       `json:"blocked_examples"`
}

// ProfileInfo returns the catalog entry for a profile.
func ProfileInfo(profile SandboxProfile) SandboxProfileInfo {
	switch profile {
	case SandboxRestricted:
		return SandboxProfileInfo{
			Profile:     profile,
			Description: "Disallow network/system-impacting shell commands and require local-only execution",
			BlockedExamples: []string{
				"curl https://...",
				"ssh user@host",
				"docker build .",
			},
		}
	case SandboxElevated:
		return SandboxProfileInfo{
			Profile:     profile,
			Description: "Least restrictive profile for trusted controlled environments",
		}
	default:
		return SandboxProfileInfo{
			Profile:     SandboxStandard,
			Description: "Allow standard local development commands; high-risk actions still need approval",
		}
	}
}

// ListProfiles returns the catalog in ascending permissiveness.
func ListProfiles() []SandboxProfileInfo {
	return []SandboxProfileInfo{
		ProfileInfo(SandboxRestricted),
		ProfileInfo(SandboxStandard),
		ProfileInfo(SandboxElevated),
	}
}

// SandboxStore persists the sandbox policy as a JSON file.
type SandboxStore struct {
	path string
}

// NewSandboxStore creates a store backed by path.
func NewSandboxStore(path string) *SandboxStore {
	return &SandboxStore{path: path}
}

// Path returns the backing file path.
func (s *SandboxStore) Path() string { return s.path }

// LoadOrDefault reads the policy, returning the default when no file exists.
func (s *SandboxStore) LoadOrDefault() (SandboxPolicy, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSandboxPolicy(), nil
		}
		return SandboxPolicy{}, errutil.Wrapf(errutil.KindIO, err, "reading sandbox policy %s", s.path)
	}
	var policy SandboxPolicy
	if err := json.Unmarshal(raw, &policy); err != nil {
		return SandboxPolicy{}, errutil.Wrapf(errutil.KindConfig, err, "invalid sandbox policy %s", s.path)
	}
	if err := policy.Validate(); err != nil {
		return SandboxPolicy{}, err
	}
	return policy, nil
}

// Save validates and writes the policy.
func (s *SandboxStore) Save(policy SandboxPolicy) error {
	policy.Version = CurrentSandboxVersion
	if err := policy.Validate(); err != nil {
		return err
	}
	return writeJSONFile(s.path, policy)
}

// SetProfile updates the profile and persists the result.
func (s *SandboxStore) SetProfile(profile SandboxProfile) (SandboxPolicy, error) {
	if !profile.Valid() {
		return SandboxPolicy{}, errutil.Newf(errutil.KindValidation, "sandbox profile %q is not one of restricted, standard, elevated", profile)
	}
	policy, err := s.LoadOrDefault()
	if err != nil {
		return SandboxPolicy{}, err
	}
	policy.Profile = profile
	if err := s.Save(policy); err != nil {
		return SandboxPolicy{}, err
	}
	return policy, nil
}
