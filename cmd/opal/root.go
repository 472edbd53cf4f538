package main

import (
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/Cyclone1070/opal/internal/errutil"
)

var (
	// Global flags
	verbose bool

	logger zerolog.Logger

	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	kindStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "opal",
	Short: "A safety-minded local CLI agent",
	Long: `opal holds a conversation with an LLM provider and lets the model
request local actions: reading and writing workspace files, searching text,
and running shell commands.

Every requested command is classified by a built-in guard, checked against
the persisted sandbox and approval policies, and confirmed with you when in
doubt. Executed commands are recorded in an append-only audit log, and every
conversation is replayable from its session log.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).
			With().Timestamp().Logger()
	},
}

// Execute runs the CLI and exits with a code derived from the error kind,
// so scripts can distinguish approval failures from network failures.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		kind := errutil.KindOf(err)
		fmt.Fprintf(os.Stderr, "%s %s\n",
			errorStyle.Render("error:"),
			err.Error())
		fmt.Fprintln(os.Stderr, kindStyle.Render(fmt.Sprintf("(%s, exit code %d)", kind, kind.ExitCode())))
		os.Exit(kind.ExitCode())
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
