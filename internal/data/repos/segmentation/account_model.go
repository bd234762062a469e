package segmentation

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

type AccountModelRepo interface {
	GetOrCreate(dbc dbctx.Context, accountID uuid.UUID, modelID int64, version string) (*types.AccountModel, error)
	ListByAccountAndModels(dbc dbctx.Context, accountID uuid.UUID, modelIDs []int64) ([]*types.AccountModel, error)
	VersionsReferencedOutside(dbc dbctx.Context, accountID uuid.UUID, modelIDs, excludeIDs []int64, versions []string) ([]string, error)
	DeleteByIDs(dbc dbctx.Context, ids []int64) (int64, error)
}

type accountModelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountModelRepo(db *gorm.DB, baseLog *logger.Logger) AccountModelRepo {
	return &accountModelRepo{db: db, log: baseLog.With("repo", "AccountModelRepo")}
}

func (r *accountModelRepo) GetOrCreate(dbc dbctx.Context, accountID uuid.UUID, modelID int64, version string) (*types.AccountModel, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if accountID == uuid.Nil || modelID == 0 || version == "" {
		return nil, fmt.Errorf("account_id, model_id and version required")
	}
	row := &types.AccountModel{AccountID: accountID, ModelID: modelID, ModelVersion: version}
	if err := transaction.WithContext(dbc.Ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_id"}, {Name: "model_id"}, {Name: "model_version"}},
			DoNothing: true,
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	var out types.AccountModel
	if err := transaction.WithContext(dbc.Ctx).
		Where("account_id = ? AND model_id = ? AND model_version = ?", accountID, modelID, version).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByAccountAndModels returns the account's versions of the given models, newest first.
func (r *accountModelRepo) ListByAccountAndModels(dbc dbctx.Context, accountID uuid.UUID, modelIDs []int64) ([]*types.AccountModel, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AccountModel
	if accountID == uuid.Nil || len(modelIDs) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("account_id = ? AND model_id IN ?", accountID, modelIDs).
		Order("model_version DESC").
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// VersionsReferencedOutside returns which of versions are still held by an account model row
// of one of modelIDs whose id is not in excludeIDs. Rows of other models, such as those of
// another model type sharing a version string, never hold a version.
func (r *accountModelRepo) VersionsReferencedOutside(dbc dbctx.Context, accountID uuid.UUID, modelIDs, excludeIDs []int64, versions []string) ([]string, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []string
	if accountID == uuid.Nil || len(modelIDs) == 0 || len(versions) == 0 {
		return out, nil
	}
	q := transaction.WithContext(dbc.Ctx).
		Model(&types.AccountModel{}).
		Where("account_id = ? AND model_id IN ? AND model_version IN ?", accountID, modelIDs, versions)
	if len(excludeIDs) > 0 {
		q = q.Where("id NOT IN ?", excludeIDs)
	}
	if err := q.Distinct("model_version").Pluck("model_version", &out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteByIDs removes the rows in a single statement. Segments, markups and active pointers
// go with them through ON DELETE CASCADE.
func (r *accountModelRepo) DeleteByIDs(dbc dbctx.Context, ids []int64) (int64, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Delete(&types.AccountModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
