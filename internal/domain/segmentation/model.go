package segmentation

import "time"

// Model is a named segmentation model ("churn", "ltv", ...). Rows are created on first
// reference and never deleted by this system.
type Model struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}

func (Model) TableName() string { return "models" }
