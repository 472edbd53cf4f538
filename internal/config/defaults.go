package config

import "github.com/Cyclone1070/opal/internal/tool/guard"

// CurrentVersion is the supported config schema version.
const CurrentVersion = 1

// ProviderKind selects which provider implementation is built at startup.
type ProviderKind string

const (
	ProviderOpenAICompatible ProviderKind = "openai_compatible"
	ProviderGemini           ProviderKind = "gemini"
)

// Config holds all application configuration values.
// Defaults are set in DefaultConfig() and can be overridden via dotfile.
// NOTE: Values in config files override defaults, including explicit zero values.
// Missing keys are left at their default values.
type Config struct {
	Version  int            `json:"version"`
	Provider ProviderConfig `json:"provider"`
	Agent    AgentConfig    `json:"agent"`
	Tools    ToolsConfig    `json:"tools"`
	State    StateConfig    `json:"state"`
}

type ProviderConfig struct {
	Kind      ProviderKind `json:"kind"`        // Default: openai_compatible
	BaseURL   string       `json:"base_url"`    // Default: https://api.openai.com
	APIKeyEnv string       `json:"api_key_env"` // Default: OPENAI_API_KEY
	Model     string       `json:"model"`       // Default: gpt-4o-mini
}

type AgentConfig struct {
	Temperature float32 `json:"temperature"` // Default: 0.2
	MaxTurns    int     `json:"max_turns"`   // Default: 8
}

type ToolsConfig struct {
	Enabled   bool       `json:"enabled"`    // Default: true
	GuardMode guard.Mode `json:"guard_mode"` // Default: confirm_dangerous
}

type StateConfig struct {
	// DataDir holds sessions/, audit/ and policy/ state. Empty means
	// ~/.local/share/opal resolved at load time.
	DataDir string `json:"data_dir"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentVersion,
		Provider: ProviderConfig{
			Kind:      ProviderOpenAICompatible,
			BaseURL:   "https://api.openai.com",
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     "gpt-4o-mini",
		},
		Agent: AgentConfig{
			Temperature: 0.2,
			MaxTurns:    8,
		},
		Tools: ToolsConfig{
			Enabled:   true,
			GuardMode: guard.ModeConfirmDangerous,
		},
		State: StateConfig{},
	}
}
