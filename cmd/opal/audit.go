package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var auditTailCount int

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the command audit log",
}

var auditTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show the most recent executed commands",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		entries, err := app.audits.Tail(auditTailCount)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("no commands audited yet")
			return nil
		}
		for _, entry := range entries {
			fmt.Printf("%s  exit=%-3d  %-18s  %s\n",
				entry.Timestamp.Local().Format("2006-01-02 15:04:05"),
				entry.ExitCode,
				entry.ApprovedBy,
				entry.Command)
		}
		return nil
	},
}

func init() {
	auditTailCmd.Flags().IntVarP(&auditTailCount, "count", "n", 20, "Number of entries to show")
	auditCmd.AddCommand(auditTailCmd)
	rootCmd.AddCommand(auditCmd)
}
