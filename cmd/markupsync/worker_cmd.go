package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/markupsync/internal/app"
	"github.com/yungbote/markupsync/internal/temporalx/temporalworker"
)

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a Temporal worker for the ingest workflow",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx)
			if err != nil {
				return withCode(exitUsage, err)
			}
			defer a.Close()

			tc, tcfg, err := a.Temporal()
			if err != nil {
				return withCode(exitUsage, err)
			}
			p, err := a.Pipeline(ctx)
			if err != nil {
				return withCode(exitDB, err)
			}
			runner, err := temporalworker.NewRunner(a.Log, tc, tcfg, p)
			if err != nil {
				return err
			}
			if err := runner.Start(ctx); err != nil {
				return fmt.Errorf("start worker: %w", err)
			}
			<-ctx.Done()
			a.Log.Info("Worker shutting down")
			return nil
		},
	}
}
