package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Cyclone1070/opal/internal/errutil"
)

var (
	sessionsClearAll bool

	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage conversation sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, most recently updated first",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		summaries, err := app.sessions.ListSessions()
		if err != nil {
			return err
		}
		if len(summaries) == 0 {
			fmt.Println("no sessions yet")
			return nil
		}
		fmt.Println(headerStyle.Render("SESSION                               EVENTS  LAST UPDATED"))
		for _, summary := range summaries {
			updated := "-"
			if summary.LastUpdated != nil {
				updated = summary.LastUpdated.Local().Format("2006-01-02 15:04:05")
			}
			fmt.Printf("%-36s  %6d  %s\n", summary.SessionID, summary.EventCount, updated)
		}
		return nil
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Replay a session's events",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		events, err := app.sessions.ReadEvents(args[0])
		if err != nil {
			return err
		}
		for _, event := range events {
			payload := "{}"
			if len(event.Payload) > 0 {
				payload = string(event.Payload)
			}
			fmt.Printf("%s %s %s\n",
				dimStyle.Render(event.Timestamp.Local().Format("15:04:05")),
				headerStyle.Render(fmt.Sprintf("%-11s", event.Kind)),
				payload)
		}
		return nil
	},
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear [session-id]",
	Short: "Delete one session, or all with --all",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		if sessionsClearAll {
			count, err := app.sessions.ClearAll()
			if err != nil {
				return err
			}
			fmt.Printf("removed %d session(s)\n", count)
			return nil
		}
		if len(args) == 0 {
			return errutil.New(errutil.KindValidation, "provide a session id or --all")
		}
		if err := app.sessions.ClearSession(args[0]); err != nil {
			return err
		}
		fmt.Printf("removed session %s\n", args[0])
		return nil
	},
}

func init() {
	sessionsClearCmd.Flags().BoolVar(&sessionsClearAll, "all", false, "Delete every session")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsShowCmd, sessionsClearCmd)
	rootCmd.AddCommand(sessionsCmd)
}
