package segmentation

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	IngestRunStatusRunning   = "running"
	IngestRunStatusSucceeded = "succeeded"
	IngestRunStatusFailed    = "failed"
)

// IngestRun records one lifecycle run for an (account, model type) pair.
type IngestRun struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID    uuid.UUID      `gorm:"type:uuid;column:account_id;not null;index:idx_ingest_run_key,priority:1" json:"account_id"`
	ModelType    string         `gorm:"column:model_type;not null;index:idx_ingest_run_key,priority:2" json:"model_type"`
	ModelVersion string         `gorm:"column:model_version" json:"model_version,omitempty"`
	Stage        string         `gorm:"column:stage;not null" json:"stage"`
	Status       string         `gorm:"column:status;not null;index" json:"status"`
	Error        string         `gorm:"column:error" json:"error,omitempty"`
	Report       datatypes.JSON `gorm:"column:report" json:"report,omitempty"`
	StartedAt    time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt   *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt    time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (IngestRun) TableName() string { return "markup_ingest_runs" }
