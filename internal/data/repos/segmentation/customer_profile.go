package segmentation

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/markupsync/internal/domain/segmentation"
	"github.com/yungbote/markupsync/internal/platform/dbctx"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

type CustomerProfileRepo interface {
	LookupCRM(dbc dbctx.Context, eshopID int64, keys []string) ([]types.ProfileRef, error)
	LookupBehaviour(dbc dbctx.Context, accountID uuid.UUID, keys []string) ([]types.ProfileRef, error)
}

type customerProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCustomerProfileRepo(db *gorm.DB, baseLog *logger.Logger) CustomerProfileRepo {
	return &customerProfileRepo{db: db, log: baseLog.With("repo", "CustomerProfileRepo")}
}

// LookupCRM returns every profile attached to the eshop under one of keys, in insertion order.
// A key may map to several profiles.
func (r *customerProfileRepo) LookupCRM(dbc dbctx.Context, eshopID int64, keys []string) ([]types.ProfileRef, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.ProfileRef
	if len(keys) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.CustomerProfileCRM{}).
		Select("customer_profile_id, eshop_customer_id AS external_key").
		Where("eshop_id = ? AND eshop_customer_id IN ?", eshopID, keys).
		Order("id ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *customerProfileRepo) LookupBehaviour(dbc dbctx.Context, accountID uuid.UUID, keys []string) ([]types.ProfileRef, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []types.ProfileRef
	if len(keys) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Model(&types.CustomerProfileBehaviour{}).
		Select("customer_profile_id, guest_id AS external_key").
		Where("account_id = ? AND guest_id IN ?", accountID, keys).
		Order("id ASC").
		Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
