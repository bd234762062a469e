package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/markupsync/internal/app"
	"github.com/yungbote/markupsync/internal/modules/markup"
	"github.com/yungbote/markupsync/internal/temporalx/ingest"
)

type enqueueResult struct {
	WorkflowID string         `json:"workflow_id"`
	RunID      string         `json:"run_id"`
	Result     *ingest.Result `json:"result,omitempty"`
}

func newEnqueueCmd() *cobra.Command {
	var target targetOptions
	var stage string
	var wait bool

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Start the ingest workflow on Temporal",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if err := target.parse(); err != nil {
				return err
			}
			if _, err := markup.ParseStages(stage); err != nil {
				return withCode(exitUsage, err)
			}
			return nil
		},
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
			run, err := ingest.Start(ctx, tc, tcfg.TaskQueue, ingest.Input{
				AccountID: target.accountID.String(),
				ModelType: target.modelType,
				Stages:    stage,
			})
			if err != nil {
				return classifyRunError(err)
			}
			out := enqueueResult{WorkflowID: run.GetID(), RunID: run.GetRunID()}
			if wait {
				var res ingest.Result
				if err := run.Get(ctx, &res); err != nil {
					_ = writeJSONLine(cmd.OutOrStdout(), out)
					return withCode(exitDB, err)
				}
				out.Result = &res
			}
			return writeJSONLine(cmd.OutOrStdout(), out)
		},
	}
	target.bind(cmd)
	cmd.Flags().StringVar(&stage, "stage", "all", "Stage to run: preprocess, load or all")
	cmd.Flags().BoolVar(&wait, "wait", false, "Block until the workflow finishes and print its result")
	return cmd
}
