package segmentation

import (
	"time"

	"github.com/shopspring/decimal"
)

type Segment struct {
	ID             int64               `gorm:"primaryKey;autoIncrement" json:"id"`
	SegmentNumber  int                 `gorm:"column:segment_number;not null;uniqueIndex:idx_segment_number_account_model,priority:1" json:"segment_number"`
	AccountModelID int64               `gorm:"column:account_model_id;not null;uniqueIndex:idx_segment_number_account_model,priority:2;index" json:"account_model_id"`
	PredictedValue decimal.NullDecimal `gorm:"column:predicted_value;type:numeric" json:"predicted_value"`
	Description    string              `gorm:"column:description" json:"description,omitempty"`
	CreatedAt      time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time           `gorm:"not null;autoUpdateTime" json:"updated_at"`

	AccountModel *AccountModel `gorm:"foreignKey:AccountModelID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Segment) TableName() string { return "segments" }

// CatalogEntry is one row of a version's segment catalog, keyed for markup resolution.
type CatalogEntry struct {
	SegmentID     int64  `json:"segment_id"`
	ModelName     string `json:"model_name"`
	SegmentNumber int    `json:"segment_number"`
}
