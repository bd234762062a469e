package segmentation

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

type ActiveAccountModelRepo interface {
	Swap(dbc dbctx.Context, accountID uuid.UUID, modelIDs []int64, rows []*types.ActiveAccountModel) error
	ListByAccount(dbc dbctx.Context, accountID uuid.UUID) ([]*types.ActiveAccountModel, error)
}

type activeAccountModelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewActiveAccountModelRepo(db *gorm.DB, baseLog *logger.Logger) ActiveAccountModelRepo {
	return &activeAccountModelRepo{db: db, log: baseLog.With("repo", "ActiveAccountModelRepo")}
}

// Swap replaces the account's active pointers for modelIDs with rows. Readers see either
// the old set or the new one.
func (r *activeAccountModelRepo) Swap(dbc dbctx.Context, accountID uuid.UUID, modelIDs []int64, rows []*types.ActiveAccountModel) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if accountID == uuid.Nil || len(modelIDs) == 0 {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).Transaction(func(txx *gorm.DB) error {
		if err := txx.
			Where("account_id = ? AND model_id IN ?", accountID, modelIDs).
			Delete(&types.ActiveAccountModel{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return txx.Omit(clause.Associations).Create(&rows).Error
	})
}

func (r *activeAccountModelRepo) ListByAccount(dbc dbctx.Context, accountID uuid.UUID) ([]*types.ActiveAccountModel, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ActiveAccountModel
	if err := transaction.WithContext(dbc.Ctx).
		Where("account_id = ?", accountID).
		Order("model_id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
