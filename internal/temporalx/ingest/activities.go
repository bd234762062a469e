package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/markupsync/internal/modules/markup"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

// Runner is the part of markup.Pipeline the activity needs.
type Runner interface {
	Run(ctx context.Context, in markup.RunInput) (markup.RunReport, error)
}

type Activities struct {
	Log      *logger.Logger
	Pipeline Runner

	HeartbeatEvery time.Duration
}

func (a *Activities) Run(ctx context.Context, in Input) (Result, error) {
	if a == nil || a.Pipeline == nil {
		return Result{}, fmt.Errorf("markup ingest activity missing deps")
	}
	accountID, err := uuid.Parse(in.AccountID)
	if err != nil {
		return Result{}, temporal.NewNonRetryableApplicationError("invalid account_id", ErrTypeStructural, err)
	}
	stages, err := markup.ParseStages(in.Stages)
	if err != nil {
		return Result{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeStructural, err)
	}

	stop := a.startHeartbeat(ctx, in)
	defer stop()

	rep, err := a.Pipeline.Run(ctx, markup.RunInput{AccountID: accountID, ModelType: in.ModelType, Stages: stages})
	if err != nil {
		if markup.IsStructural(err) || errors.Is(err, markup.ErrNothingLoaded) {
			return Result{}, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeStructural, err)
		}
		if a.Log != nil {
			a.Log.Warn("markup ingest attempt failed", "account_id", in.AccountID, "model_type", in.ModelType,
				"attempt", activity.GetInfo(ctx).Attempt, "error", err)
		}
		return Result{}, err
	}
	return resultFromReport(rep), nil
}

func resultFromReport(rep markup.RunReport) Result {
	out := Result{
		RunID:   rep.RunID.String(),
		Version: rep.Version,
		Status:  rep.Status,
	}
	if p := rep.Preprocess; p != nil {
		out.Resolved = p.Resolved
		out.Unresolved = p.Unresolved
	}
	if l := rep.Load; l != nil {
		out.Inserted = l.Loader.Inserted
		out.Activated = len(l.Activated)
		out.Archived = l.Retention.Archived
	}
	return out
}

func (a *Activities) startHeartbeat(ctx context.Context, in Input) func() {
	every := a.HeartbeatEvery
	if every <= 0 {
		every = 20 * time.Second
	}
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx, in.ModelType)
			}
		}
	}()
	return cancel
}
