package segmentation

import (
	"time"

	"github.com/google/uuid"
)

// AccountModel is one ingested version of a model for an account.
type AccountModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AccountID    uuid.UUID `gorm:"type:uuid;column:account_id;not null;uniqueIndex:idx_account_model_version,priority:1" json:"account_id"`
	ModelID      int64     `gorm:"column:model_id;not null;uniqueIndex:idx_account_model_version,priority:2" json:"model_id"`
	ModelVersion string    `gorm:"column:model_version;not null;uniqueIndex:idx_account_model_version,priority:3;index" json:"model_version"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime" json:"created_at"`

	Model *Model `gorm:"foreignKey:ModelID;constraint:OnDelete:CASCADE" json:"-"`
}

func (AccountModel) TableName() string { return "account_models" }
