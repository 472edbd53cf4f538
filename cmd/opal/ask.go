package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Cyclone1070/opal/internal/agent"
	"github.com/Cyclone1070/opal/internal/tool"
)

var (
	askSession string
	askYes     bool
	askNoInput bool
	askCwd     string

	sessionIDStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Ask the agent to do something in this workspace",
	Long: `Send a prompt to the configured model and let it use local tools.

Confirmable commands prompt on the terminal unless --yes pre-approves them
or --no-input disables prompting. Blocked commands, sandbox denials and an
approval policy in deny mode can never be overridden.

Examples:
  opal ask "summarise README.md"
  opal ask --yes "run the test suite and fix the first failure"
  opal ask --session 7b0c… "now do the same for the v2 branch"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "Resume an existing session id")
	askCmd.Flags().BoolVarP(&askYes, "yes", "y", false, "Pre-approve confirmable commands")
	askCmd.Flags().BoolVar(&askNoInput, "no-input", false, "Never prompt; confirmable commands fail instead")
	askCmd.Flags().StringVar(&askCwd, "cwd", "", "Workspace directory (default: current directory)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, err := loadApp()
	if err != nil {
		return err
	}

	cwd := askCwd
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	p, err := app.buildProvider(ctx)
	if err != nil {
		return err
	}

	tools := tool.NewExecutor(app.cfg.Tools.GuardMode, app.policyLoader(), os.Stdin, os.Stderr, logger)
	runner := agent.NewRunner(p, app.cfg, app.sessions, app.audits, tools, logger)

	result, err := runner.Ask(ctx, strings.Join(args, " "), agent.Options{
		SessionID:   askSession,
		Cwd:         cwd,
		Yes:         askYes,
		Interactive: !askNoInput,
	})
	if err != nil {
		return err
	}

	fmt.Println(renderMarkdown(result.Response))
	fmt.Println(sessionIDStyle.Render(fmt.Sprintf("session %s · %d turn(s)", result.SessionID, result.Turns)))
	return nil
}

// renderMarkdown pretty-prints the answer when the terminal supports it and
// falls back to the raw text otherwise.
func renderMarkdown(text string) string {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(rendered, "\n")
}
