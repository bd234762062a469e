package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "markupsync",
		Short:         "Load customer segment markups and manage model versions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newStageCmd("preprocess", "Resolve markup keys and write the preprocessed files"))
	cmd.AddCommand(newStageCmd("load", "Load preprocessed files, then retire and activate versions"))
	cmd.AddCommand(newVersionsCmd())
	cmd.AddCommand(newPurgeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newWorkerCmd())
	cmd.AddCommand(newEnqueueCmd())
	return cmd
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		code := exitCode(err)
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(code)
	}
}
