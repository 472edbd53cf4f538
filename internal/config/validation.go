package config

import (
	"fmt"

	"github.com/Cyclone1070/opal/internal/errutil"
)

// Validate checks config values for correctness.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	if c.Version != CurrentVersion {
		return errutil.Newf(errutil.KindConfig,
			"unsupported config version %d, expected %d", c.Version, CurrentVersion)
	}

	var errs []string

	switch c.Provider.Kind {
	case ProviderOpenAICompatible, ProviderGemini:
	default:
		errs = append(errs, fmt.Sprintf("provider.kind %q is not supported", c.Provider.Kind))
	}
	if c.Provider.BaseURL == "" {
		errs = append(errs, "provider.base_url must not be empty")
	}
	if c.Provider.APIKeyEnv == "" {
		errs = append(errs, "provider.api_key_env must not be empty")
	}
	if c.Provider.Model == "" {
		errs = append(errs, "provider.model must not be empty")
	}

	if c.Agent.Temperature < 0 || c.Agent.Temperature > 2 {
		errs = append(errs, "agent.temperature must be in [0.0, 2.0]")
	}
	if c.Agent.MaxTurns < 1 {
		errs = append(errs, "agent.max_turns must be >= 1")
	}

	if !c.Tools.GuardMode.Valid() {
		errs = append(errs, fmt.Sprintf("tools.guard_mode %q is not one of confirm_dangerous, all_confirm, unrestricted", c.Tools.GuardMode))
	}

	if len(errs) > 0 {
		return errutil.Newf(errutil.KindValidation, "config validation failed: %v", errs)
	}

	return nil
}
