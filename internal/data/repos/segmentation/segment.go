package segmentation

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

const segmentUpsertBatchSize = 1000

type SegmentRepo interface {
	Upsert(dbc dbctx.Context, rows []*types.Segment) error
	CatalogForAccountModels(dbc dbctx.Context, accountModelIDs []int64) ([]types.CatalogEntry, error)
	ListByAccountModel(dbc dbctx.Context, accountModelID int64) ([]*types.Segment, error)
}

type segmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSegmentRepo(db *gorm.DB, baseLog *logger.Logger) SegmentRepo {
	return &segmentRepo{db: db, log: baseLog.With("repo", "SegmentRepo")}
}

// Upsert writes rows keyed on (segment_number, account_model_id), overwriting predicted_value
// and description of existing rows. Callers must not pass two rows with the same key.
func (r *segmentRepo) Upsert(dbc dbctx.Context, rows []*types.Segment) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		return txx.
			Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "segment_number"}, {Name: "account_model_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"predicted_value", "description", "updated_at"}),
			}).
			CreateInBatches(rows, segmentUpsertBatchSize).Error
	})
}

// CatalogForAccountModels lists the segments of the given account models with their model name.
func (r *segmentRepo) CatalogForAccountModels(dbc dbctx.Context, accountModelIDs []int64) ([]types.CatalogEntry, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.CatalogEntry
	if len(accountModelIDs) == 0 {
		return out, nil
	}
	err := transaction.WithContext(dbc.Ctx).
		Table("segments AS s").
		Select("s.id AS segment_id, m.name AS model_name, s.segment_number AS segment_number").
		Joins("JOIN account_models AS am ON am.id = s.account_model_id").
		Joins("JOIN models AS m ON m.id = am.model_id").
		Where("s.account_model_id IN ?", accountModelIDs).
		Order("s.id ASC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *segmentRepo) ListByAccountModel(dbc dbctx.Context, accountModelID int64) ([]*types.Segment, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Segment
	if err := transaction.WithContext(dbc.Ctx).
		Where("account_model_id = ?", accountModelID).
		Order("segment_number ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
