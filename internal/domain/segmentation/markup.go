package segmentation

import (
	"time"

	"github.com/google/uuid"
)

// Markup assigns a customer profile to a segment. Append-only.
type Markup struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SegmentID         int64     `gorm:"column:segment_id;not null;index" json:"segment_id"`
	CustomerProfileID uuid.UUID `gorm:"type:uuid;column:customer_profile_id;not null;index" json:"customer_profile_id"`
	AccountID         uuid.UUID `gorm:"type:uuid;column:account_id;not null;index" json:"account_id"`
	CreatedAt         time.Time `gorm:"not null;autoCreateTime" json:"created_at"`

	Segment *Segment `gorm:"foreignKey:SegmentID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Markup) TableName() string { return "markups" }
