package markup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	"github.com/yungbote/markupsync/internal/data/repos"
	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/observability"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/lock"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

type Stage string

const (
	StagePreprocess Stage = "preprocess"
	StageLoad       Stage = "load"
)

// ParseStages maps "preprocess", "load" or "all" (also "") to the stages to run, in order.
func ParseStages(raw string) ([]Stage, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return []Stage{StagePreprocess, StageLoad}, nil
	case string(StagePreprocess):
		return []Stage{StagePreprocess}, nil
	case string(StageLoad):
		return []Stage{StageLoad}, nil
	default:
		return nil, fmt.Errorf("unknown stage %q (want preprocess, load or all)", raw)
	}
}

const DefaultRootFolder = "models"

type Config struct {
	RootFolder     string
	ChunkSize      int
	Retention      RetentionPolicy
	PushgatewayURL string
	PushJob        string
}

type Deps struct {
	Log     *logger.Logger
	Store   ObjectStore
	Eshops  EshopLookup
	Repos   repos.Repos
	Locker  lock.Locker
	Metrics *observability.Metrics
	Sources Sources
}

type RunInput struct {
	AccountID uuid.UUID `json:"account_id"`
	ModelType string    `json:"model_type"`
	Stages    []Stage   `json:"stages,omitempty"`
}

type RunReport struct {
	RunID      uuid.UUID         `json:"run_id"`
	AccountID  uuid.UUID         `json:"account_id"`
	ModelType  string            `json:"model_type"`
	Version    string            `json:"version,omitempty"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	Preprocess *PreprocessReport `json:"preprocess,omitempty"`
	Load       *LoadReport       `json:"load,omitempty"`
	Duration   time.Duration     `json:"duration"`
}

type Pipeline struct {
	log        *logger.Logger
	store      ObjectStore
	runs       repos.IngestRunRepo
	locker     lock.Locker
	metrics    *observability.Metrics
	sources    Sources
	cfg        Config
	preprocess *Preprocessor
	load       *LoadStage
}

func NewPipeline(deps Deps, cfg Config) (*Pipeline, error) {
	switch {
	case deps.Log == nil:
		return nil, fmt.Errorf("logger required")
	case deps.Store == nil:
		return nil, fmt.Errorf("object store required")
	case deps.Eshops == nil:
		return nil, fmt.Errorf("eshop lookup required")
	case deps.Locker == nil:
		return nil, fmt.Errorf("locker required")
	case len(deps.Sources) == 0:
		return nil, fmt.Errorf("source kinds required")
	}
	if cfg.RootFolder == "" {
		cfg.RootFolder = DefaultRootFolder
	}
	r := deps.Repos
	catalog := NewCatalogUpserter(deps.Log, r.Models, r.AccountModels, r.Segments)
	loader := NewLoader(deps.Log, r.Segments, r.Markups, deps.Metrics, cfg.ChunkSize)
	retention := NewRetentionManager(deps.Log, deps.Store, r.AccountModels, deps.Metrics, cfg.Retention)
	activation := NewActivationManager(deps.Log, r.ActiveAccountModels)

	return &Pipeline{
		log:        deps.Log.With("component", "MarkupPipeline"),
		store:      deps.Store,
		runs:       r.IngestRuns,
		locker:     deps.Locker,
		metrics:    deps.Metrics,
		sources:    deps.Sources,
		cfg:        cfg,
		preprocess: NewPreprocessor(deps.Log, deps.Store, deps.Eshops, r.CustomerProfiles, deps.Sources, deps.Metrics, cfg.RootFolder),
		load:       NewLoadStage(deps.Log, deps.Store, deps.Sources, catalog, loader, retention, activation, cfg.RootFolder),
	}, nil
}

// LockKey identifies the single-writer scope of a run.
func LockKey(accountID uuid.UUID, modelType string) string {
	return "markup_ingest:" + accountID.String() + ":" + modelType
}

// Run executes the requested stages for one (account, model type) while holding its lock.
// A concurrent run for the same key fails with lock.ErrNotAcquired.
func (p *Pipeline) Run(ctx context.Context, in RunInput) (RunReport, error) {
	rep := RunReport{AccountID: in.AccountID, ModelType: in.ModelType}
	if in.AccountID == uuid.Nil {
		return rep, structural("validate input", fmt.Errorf("account id required"))
	}
	if _, err := p.sources.Kind(in.ModelType); err != nil {
		return rep, err
	}
	stages := in.Stages
	if len(stages) == 0 {
		stages = []Stage{StagePreprocess, StageLoad}
	}

	err := p.locker.WithLock(ctx, LockKey(in.AccountID, in.ModelType), func(ctx context.Context) error {
		return p.run(ctx, in, stages, &rep)
	})
	if errors.Is(err, lock.ErrNotAcquired) {
		p.log.Warn("run already in progress; skipped", "account_id", in.AccountID.String(), "model_type", in.ModelType)
	}
	return rep, err
}

func (p *Pipeline) run(ctx context.Context, in RunInput, stages []Stage, rep *RunReport) (err error) {
	start := time.Now()
	log := p.log.With("account_id", in.AccountID.String(), "model_type", in.ModelType)
	ctx, span := observability.Tracer().Start(ctx, "markup.run")
	span.SetAttributes(
		attribute.String("markup.account_id", in.AccountID.String()),
		attribute.String("markup.model_type", in.ModelType),
	)
	defer span.End()

	runID := p.startRun(ctx, in, stages[0], log)
	rep.RunID = runID

	defer func() {
		rep.Duration = time.Since(start)
		rep.Status = types.IngestRunStatusSucceeded
		if err != nil {
			rep.Status = types.IngestRunStatusFailed
			rep.Error = err.Error()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Error("run failed", "version", rep.Version, "structural", IsStructural(err), "error", err)
		} else {
			log.Info("run finished", "version", rep.Version, "duration", rep.Duration.String())
		}
		p.finishRun(ctx, runID, rep, log)
		p.metrics.ObserveRun(in.ModelType, rep.Status, rep.Duration)
		p.pushMetrics(ctx, in, log)
	}()

	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.markStage(ctx, runID, stage, log)
		switch stage {
		case StagePreprocess:
			sctx, sspan := observability.Tracer().Start(ctx, "markup.preprocess")
			pre, err := p.preprocess.Run(sctx, in.AccountID, in.ModelType)
			sspan.End()
			rep.Preprocess = &pre
			if pre.Version != "" {
				rep.Version = pre.Version
			}
			if err != nil {
				return err
			}
		case StageLoad:
			lctx, lspan := observability.Tracer().Start(ctx, "markup.load_stage")
			ld, err := p.load.Run(lctx, in.AccountID, in.ModelType)
			lspan.End()
			rep.Load = &ld
			if ld.Version != "" {
				rep.Version = ld.Version
			}
			if err != nil {
				return err
			}
		default:
			return structural("validate input", fmt.Errorf("unknown stage %q", stage))
		}
	}
	return nil
}

// Versions lists the version folders of an account's model type.
func (p *Pipeline) Versions(ctx context.Context, accountID uuid.UUID, modelType string) (VersionListing, error) {
	if _, err := p.sources.Kind(modelType); err != nil {
		return VersionListing{}, err
	}
	return ResolveVersions(ctx, p.store, ModelFolder(p.cfg.RootFolder, accountID, modelType))
}

// The run audit is best effort: a failing audit write is logged and never fails the run.

func (p *Pipeline) startRun(ctx context.Context, in RunInput, stage Stage, log *logger.Logger) uuid.UUID {
	if p.runs == nil {
		return uuid.Nil
	}
	run, err := p.runs.Create(dbctx.Context{Ctx: ctx}, &types.IngestRun{
		AccountID: in.AccountID,
		ModelType: in.ModelType,
		Stage:     string(stage),
		Status:    types.IngestRunStatusRunning,
	})
	if err != nil {
		log.Warn("ingest run not recorded", "error", err)
		return uuid.Nil
	}
	return run.ID
}

func (p *Pipeline) markStage(ctx context.Context, runID uuid.UUID, stage Stage, log *logger.Logger) {
	if p.runs == nil || runID == uuid.Nil {
		return
	}
	if err := p.runs.UpdateFields(dbctx.Context{Ctx: ctx}, runID, map[string]interface{}{"stage": string(stage)}); err != nil {
		log.Warn("ingest run stage not updated", "run_id", runID.String(), "error", err)
	}
}

func (p *Pipeline) finishRun(ctx context.Context, runID uuid.UUID, rep *RunReport, log *logger.Logger) {
	if p.runs == nil || runID == uuid.Nil {
		return
	}
	raw, err := json.Marshal(rep)
	if err != nil {
		log.Warn("run report not encoded", "error", err)
		raw = []byte("{}")
	}
	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":        rep.Status,
		"error":         rep.Error,
		"model_version": rep.Version,
		"report":        datatypes.JSON(raw),
		"finished_at":   &now,
	}
	if err := p.runs.UpdateFields(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, runID, updates); err != nil {
		log.Warn("ingest run not finalized", "run_id", runID.String(), "error", err)
	}
}

func (p *Pipeline) pushMetrics(ctx context.Context, in RunInput, log *logger.Logger) {
	if p.cfg.PushgatewayURL == "" {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	grouping := map[string]string{"model_type": in.ModelType}
	if err := p.metrics.Push(pctx, p.cfg.PushgatewayURL, p.cfg.PushJob, grouping); err != nil {
		log.Warn("metrics push failed", "error", err)
	}
}
