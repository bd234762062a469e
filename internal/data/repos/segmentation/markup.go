package segmentation

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

// Rows per INSERT statement inside one chunk; keeps bind parameters under driver limits.
const markupStatementRows = 1000

type MarkupRepo interface {
	InsertChunk(dbc dbctx.Context, rows []*types.Markup) error
	DeleteBySegmentIDs(dbc dbctx.Context, segmentIDs []int64) (int64, error)
	CountByAccount(dbc dbctx.Context, accountID uuid.UUID) (int64, error)
}

type markupRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMarkupRepo(db *gorm.DB, baseLog *logger.Logger) MarkupRepo {
	return &markupRepo{db: db, log: baseLog.With("repo", "MarkupRepo")}
}

// InsertChunk inserts rows in one transaction; the chunk is committed when it returns nil.
func (r *markupRepo) InsertChunk(dbc dbctx.Context, rows []*types.Markup) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		return txx.Omit(clause.Associations).CreateInBatches(rows, markupStatementRows).Error
	})
}

func (r *markupRepo) DeleteBySegmentIDs(dbc dbctx.Context, segmentIDs []int64) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(segmentIDs) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("segment_id IN ?", segmentIDs).
		Delete(&types.Markup{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *markupRepo) CountByAccount(dbc dbctx.Context, accountID uuid.UUID) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var n int64
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.Markup{}).
		Where("account_id = ?", accountID).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
