package segmentation

import (
	"time"

	"github.com/google/uuid"
)

// ActiveAccountModel points an (account, model) pair at the version consumers should read.
type ActiveAccountModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID      uuid.UUID `gorm:"type:uuid;column:account_id;not null;uniqueIndex:idx_active_account_model,priority:1" json:"account_id"`
	ModelID        int64     `gorm:"column:model_id;not null;uniqueIndex:idx_active_account_model,priority:2" json:"model_id"`
	AccountModelID int64     `gorm:"column:account_model_id;not null;index" json:"account_model_id"`
	CreatedAt      time.Time `gorm:"not null;autoCreateTime" json:"created_at"`

	AccountModel *AccountModel `gorm:"foreignKey:AccountModelID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ActiveAccountModel) TableName() string { return "active_account_models" }
