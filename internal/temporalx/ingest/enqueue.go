package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/markupsync/internal/modules/markup"
)

// ErrAlreadyRunning is returned by Start when an ingest for the same account and model type
// is still open.
var ErrAlreadyRunning = errors.New("markup ingest already running")

// WorkflowID shares the pipeline lock key, so Temporal refuses a second open ingest for the
// same (account, model type) before a worker ever picks it up.
func WorkflowID(accountID uuid.UUID, modelType string) string {
	return markup.LockKey(accountID, modelType)
}

// Start schedules an ingest on the given task queue.
func Start(ctx context.Context, c temporalsdkclient.Client, taskQueue string, in Input) (temporalsdkclient.WorkflowRun, error) {
	if c == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	accountID, err := uuid.Parse(in.AccountID)
	if err != nil {
		return nil, fmt.Errorf("invalid account id %q: %w", in.AccountID, err)
	}
	if in.ModelType == "" {
		return nil, fmt.Errorf("model type required")
	}
	if _, err := markup.ParseStages(in.Stages); err != nil {
		return nil, err
	}

	id := WorkflowID(accountID, in.ModelType)
	run, err := c.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                       id,
		TaskQueue:                taskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_FAIL,
		WorkflowIDReusePolicy:    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, WorkflowName, in)
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyRunning, id)
		}
		return nil, fmt.Errorf("start workflow %s: %w", id, err)
	}
	return run, nil
}
