package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/markupsync/internal/app"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the segmentation tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(cmd.Context())
			if err != nil {
				return withCode(exitUsage, err)
			}
			defer a.Close()
			if err := a.Migrate(); err != nil {
				return withCode(exitDB, err)
			}
			a.Log.Info("Migrations applied")
			return nil
		},
	}
}
