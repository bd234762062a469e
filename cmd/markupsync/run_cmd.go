package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/markupsync/internal/app"
	"github.com/yungbote/markupsync/internal/modules/markup"
)

type targetOptions struct {
	account   string
	modelType string

	accountID uuid.UUID
}

func (o *targetOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.account, "account", "", "Account UUID (required)")
	cmd.Flags().StringVar(&o.modelType, "type", "", "Markup source kind, e.g. crm or beh (required)")
	_ = cmd.MarkFlagRequired("account")
	_ = cmd.MarkFlagRequired("type")
}

func (o *targetOptions) parse() error {
	id, err := uuid.Parse(strings.TrimSpace(o.account))
	if err != nil {
		return withCode(exitUsage, fmt.Errorf("invalid --account: %w", err))
	}
	o.accountID = id
	o.modelType = strings.TrimSpace(o.modelType)
	if o.modelType == "" {
		return withCode(exitUsage, fmt.Errorf("--type is required"))
	}
	return nil
}

func newRunCmd() *cobra.Command {
	var target targetOptions
	var stage string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full ingest lifecycle for one account and source kind",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return target.parse()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := markup.ParseStages(stage)
			if err != nil {
				return withCode(exitUsage, err)
			}
			return runPipeline(cmd, target, stages)
		},
	}
	target.bind(cmd)
	cmd.Flags().StringVar(&stage, "stage", "all", "Stage to run: preprocess, load or all")
	return cmd
}

func newStageCmd(stage, short string) *cobra.Command {
	var target targetOptions
	cmd := &cobra.Command{
		Use:   stage,
		Short: short,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return target.parse()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			stages, err := markup.ParseStages(stage)
			if err != nil {
				return withCode(exitUsage, err)
			}
			return runPipeline(cmd, target, stages)
		},
	}
	target.bind(cmd)
	return cmd
}

func runPipeline(cmd *cobra.Command, target targetOptions, stages []markup.Stage) error {
	ctx := cmd.Context()
	a, err := app.New(ctx)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer a.Close()

	p, err := a.Pipeline(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}
	rep, runErr := p.Run(ctx, markup.RunInput{AccountID: target.accountID, ModelType: target.modelType, Stages: stages})
	if err := writeJSONLine(cmd.OutOrStdout(), rep); err != nil {
		return withCode(exitDB, err)
	}
	return classifyRunError(runErr)
}

func newVersionsCmd() *cobra.Command {
	var target targetOptions
	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List the version folders present for an account and source kind",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return target.parse()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx)
			if err != nil {
				return withCode(exitUsage, err)
			}
			defer a.Close()

			p, err := a.Pipeline(ctx)
			if err != nil {
				return withCode(exitDB, err)
			}
			listing, err := p.Versions(ctx, target.accountID, target.modelType)
			if err != nil {
				return classifyRunError(err)
			}
			return writeJSONLine(cmd.OutOrStdout(), listing)
		},
	}
	target.bind(cmd)
	return cmd
}
