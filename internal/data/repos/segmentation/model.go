package segmentation

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

type ModelRepo interface {
	GetOrCreate(dbc dbctx.Context, name string) (*types.Model, error)
	GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Model, error)
}

type modelRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewModelRepo(db *gorm.DB, baseLog *logger.Logger) ModelRepo {
	return &modelRepo{db: db, log: baseLog.With("repo", "ModelRepo")}
}

// GetOrCreate inserts the model if absent and returns the stored row. Concurrent callers
// racing on the same name both end up reading the single surviving row.
func (r *modelRepo) GetOrCreate(dbc dbctx.Context, name string) (*types.Model, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if name == "" {
		return nil, fmt.Errorf("model name required")
	}
	row := &types.Model{Name: name}
	if err := transaction.WithContext(dbc.Ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoNothing: true,
		}).
		Create(row).Error; err != nil {
		return nil, err
	}
	var out types.Model
	if err := transaction.WithContext(dbc.Ctx).
		Where("name = ?", name).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *modelRepo) GetByIDs(dbc dbctx.Context, ids []int64) ([]*types.Model, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Model
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
