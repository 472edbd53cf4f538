package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Cyclone1070/opal/internal/policy"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Manage the approval and sandbox policies",
	Long: `The approval policy decides whether commands are denied, confirmed or
allowlisted; the sandbox profile can unconditionally veto network and system
commands. Both are stored as JSON under the data directory and re-read before
every command evaluation, so edits take effect immediately.`,
}

var approvalsCmd = &cobra.Command{
	Use:   "approvals",
	Short: "Manage the approval policy",
}

var approvalsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current approval policy",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		current, err := app.approvals.LoadOrDefault()
		if err != nil {
			return err
		}
		fmt.Printf("mode: %s\n", current.Mode)
		if len(current.Allowlist) == 0 {
			fmt.Println("allowlist: (empty)")
			return nil
		}
		fmt.Println("allowlist:")
		for _, prefix := range current.Allowlist {
			fmt.Printf("  - %s\n", prefix)
		}
		return nil
	},
}

var approvalsSetModeCmd = &cobra.Command{
	Use:   "set-mode <deny|confirm|allowlist>",
	Short: "Set the approval mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		updated, err := app.approvals.SetMode(policy.ApprovalMode(strings.ToLower(args[0])))
		if err != nil {
			return err
		}
		fmt.Printf("approval mode set to %s\n", updated.Mode)
		return nil
	},
}

var approvalsAllowCmd = &cobra.Command{
	Use:   "allow <command-prefix>",
	Short: "Add a command prefix to the allowlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		updated, err := app.approvals.AddAllowlist(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("allowlist now has %d prefix(es)\n", len(updated.Allowlist))
		return nil
	},
}

var approvalsDisallowCmd = &cobra.Command{
	Use:   "disallow <command-prefix>",
	Short: "Remove a command prefix from the allowlist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		updated, err := app.approvals.RemoveAllowlist(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("allowlist now has %d prefix(es)\n", len(updated.Allowlist))
		return nil
	},
}

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Manage the sandbox profile",
}

var sandboxShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current sandbox profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		current, err := app.sandbox.LoadOrDefault()
		if err != nil {
			return err
		}
		info := policy.ProfileInfo(current.Profile)
		fmt.Printf("profile: %s\n%s\n", info.Profile, info.Description)
		return nil
	},
}

var sandboxSetProfileCmd = &cobra.Command{
	Use:   "set-profile <restricted|standard|elevated>",
	Short: "Set the sandbox profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		updated, err := app.sandbox.SetProfile(policy.SandboxProfile(strings.ToLower(args[0])))
		if err != nil {
			return err
		}
		fmt.Printf("sandbox profile set to %s\n", updated.Profile)
		return nil
	},
}

var sandboxProfilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "List the available sandbox profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, info := range policy.ListProfiles() {
			fmt.Printf("%-10s  %s\n", info.Profile, info.Description)
		}
		return nil
	},
}

func init() {
	approvalsCmd.AddCommand(approvalsShowCmd, approvalsSetModeCmd, approvalsAllowCmd, approvalsDisallowCmd)
	sandboxCmd.AddCommand(sandboxShowCmd, sandboxSetProfileCmd, sandboxProfilesCmd)
	policyCmd.AddCommand(approvalsCmd, sandboxCmd)
	rootCmd.AddCommand(policyCmd)
}
