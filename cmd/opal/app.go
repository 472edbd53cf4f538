package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/Cyclone1070/opal/internal/audit"
	"github.com/Cyclone1070/opal/internal/config"
	"github.com/Cyclone1070/opal/internal/errutil"
	"github.com/Cyclone1070/opal/internal/policy"
	"github.com/Cyclone1070/opal/internal/provider"
	"github.com/Cyclone1070/opal/internal/provider/gemini"
	"github.com/Cyclone1070/opal/internal/provider/openai"
	"github.com/Cyclone1070/opal/internal/session"
)

// app bundles the wired stores every subcommand needs.
type app struct {
	cfg       *config.Config
	sessions  *session.Store
	audits    *audit.Store
	approvals *policy.ApprovalStore
	sandbox   *policy.SandboxStore
}

// loadApp loads the config and builds the file-backed stores under the
// configured data directory.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	dataDir := cfg.State.DataDir
	approvalsPath, sandboxPath := policy.DefaultPaths(dataDir)
	auditDir, auditLog := audit.DefaultPaths(dataDir)

	return &app{
		cfg:       cfg,
		sessions:  session.NewStore(filepath.Join(dataDir, "sessions")),
		audits:    audit.NewStore(auditDir, auditLog),
		approvals: policy.NewApprovalStore(approvalsPath),
		sandbox:   policy.NewSandboxStore(sandboxPath),
	}, nil
}

// policyLoader reads both policy files fresh on every run_cmd evaluation.
func (a *app) policyLoader() policy.Loader {
	return policy.NewFileLoader(a.approvals, a.sandbox)
}

// buildProvider constructs the configured provider backend.
func (a *app) buildProvider(ctx context.Context) (provider.Provider, error) {
	apiKey := os.Getenv(a.cfg.Provider.APIKeyEnv)

	switch a.cfg.Provider.Kind {
	case config.ProviderGemini:
		if apiKey == "" {
			return nil, errutil.Newf(errutil.KindAuth,
				"environment variable %s is not set", a.cfg.Provider.APIKeyEnv)
		}
		return gemini.New(ctx, apiKey)
	case config.ProviderOpenAICompatible:
		// An empty key is tolerated for local OpenAI-compatible servers.
		return openai.New(a.cfg.Provider.BaseURL, apiKey), nil
	default:
		return nil, errutil.Newf(errutil.KindConfig,
			"unknown provider kind '%s'", a.cfg.Provider.Kind)
	}
}
