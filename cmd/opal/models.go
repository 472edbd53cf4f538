package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models the configured provider can serve",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp()
		if err != nil {
			return err
		}
		p, err := app.buildProvider(cmd.Context())
		if err != nil {
			return err
		}
		models, err := p.ListModels(cmd.Context())
		if err != nil {
			return err
		}
		for _, model := range models {
			marker := "  "
			if model.ID == app.cfg.Provider.Model {
				marker = "* "
			}
			if model.OwnedBy != "" {
				fmt.Printf("%s%s (%s)\n", marker, model.ID, model.OwnedBy)
			} else {
				fmt.Printf("%s%s\n", marker, model.ID)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}
