package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	downStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the configured provider is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		p, err := app.buildProvider(cmd.Context())
		if err != nil {
			return err
		}
		health, err := p.Health(cmd.Context())
		if err != nil {
			return err
		}
		if health.OK {
			fmt.Printf("%s %s (%dms)\n", okStyle.Render("ok"), health.Detail, health.LatencyMS)
			return nil
		}
		fmt.Printf("%s %s\n", downStyle.Render("down"), health.Detail)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
