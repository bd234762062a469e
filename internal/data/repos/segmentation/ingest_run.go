package segmentation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

type IngestRunRepo interface {
	Create(dbc dbctx.Context, run *types.IngestRun) (*types.IngestRun, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	GetLatest(dbc dbctx.Context, accountID uuid.UUID, modelType string) (*types.IngestRun, error)
}

type ingestRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIngestRunRepo(db *gorm.DB, baseLog *logger.Logger) IngestRunRepo {
	return &ingestRunRepo{db: db, log: baseLog.With("repo", "IngestRunRepo")}
}

func (r *ingestRunRepo) Create(dbc dbctx.Context, run *types.IngestRun) (*types.IngestRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if err := transaction.WithContext(dbc.Ctx).Create(run).Error; err != nil {
		return nil, err
	}
	return run, nil
}

func (r *ingestRunRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil || len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.IngestRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *ingestRunRepo) GetLatest(dbc dbctx.Context, accountID uuid.UUID, modelType string) (*types.IngestRun, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if accountID == uuid.Nil || modelType == "" {
		return nil, nil
	}
	var run types.IngestRun
	err := transaction.WithContext(dbc.Ctx).
		Where("account_id = ? AND model_type = ?", accountID, modelType).
		Order("started_at DESC").
		Limit(1).
		Find(&run).Error
	if err != nil {
		return nil, err
	}
	if run.ID == uuid.Nil {
		return nil, nil
	}
	return &run, nil
}
