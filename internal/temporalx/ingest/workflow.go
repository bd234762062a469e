package ingest

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow runs one markup ingest as a single heartbeating activity. The run is idempotent
// per version, so transient failures are retried from the start.
func Workflow(ctx workflow.Context, in Input) (Result, error) {
	if strings.TrimSpace(in.AccountID) == "" || strings.TrimSpace(in.ModelType) == "" {
		return Result{}, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("account_id and model_type required (got %q, %q)", in.AccountID, in.ModelType),
			ErrTypeStructural, nil)
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        30 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        10 * time.Minute,
			MaximumAttempts:        5,
			NonRetryableErrorTypes: []string{ErrTypeStructural},
		},
	})

	logger := workflow.GetLogger(ctx)
	logger.Info("markup ingest started", "model_type", in.ModelType, "stages", in.Stages)

	var out Result
	if err := workflow.ExecuteActivity(ctx, ActivityRun, in).Get(ctx, &out); err != nil {
		return Result{}, err
	}
	logger.Info("markup ingest finished", "version", out.Version, "status", out.Status)
	return out, nil
}
