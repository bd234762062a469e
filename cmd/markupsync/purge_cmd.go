package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yungbote/markupsync/internal/app"
)

type purgeOptions struct {
	prefix        string
	olderThanDays int
	dryRun        bool
}

func newPurgeCmd() *cobra.Command {
	var opts purgeOptions
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete version folders older than a number of days",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.validate()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := app.New(ctx)
			if err != nil {
				return withCode(exitUsage, err)
			}
			defer a.Close()

			purger, err := a.Purger(ctx)
			if err != nil {
				return withCode(exitDB, err)
			}
			olderThan := time.Duration(opts.olderThanDays) * 24 * time.Hour
			rep, err := purger.Purge(ctx, opts.prefix, olderThan, opts.dryRun)
			if werr := writeJSONLine(cmd.OutOrStdout(), rep); werr != nil && err == nil {
				err = werr
			}
			if err != nil {
				return withCode(exitDB, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.prefix, "prefix", "", "Folder holding version subfolders, e.g. models/<account>/crm (required)")
	cmd.Flags().IntVar(&opts.olderThanDays, "older-than-days", 0, "Delete versions older than this many days (required)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Report what would be deleted without deleting")
	_ = cmd.MarkFlagRequired("prefix")
	_ = cmd.MarkFlagRequired("older-than-days")
	return cmd
}

func (o *purgeOptions) validate() error {
	o.prefix = strings.Trim(strings.TrimSpace(o.prefix), "/")
	if o.prefix == "" {
		return withCode(exitUsage, fmt.Errorf("--prefix is required"))
	}
	if o.olderThanDays < 1 {
		return withCode(exitUsage, fmt.Errorf("--older-than-days must be at least 1, got %d", o.olderThanDays))
	}
	return nil
}
