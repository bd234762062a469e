package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/markupsync/internal/data/repos/segmentation"
	"github.com/yungbote/markupsync/internal/platform/logger"
)

type ModelRepo = segmentation.ModelRepo
type AccountModelRepo = segmentation.AccountModelRepo
type SegmentRepo = segmentation.SegmentRepo
type MarkupRepo = segmentation.MarkupRepo
type ActiveAccountModelRepo = segmentation.ActiveAccountModelRepo
type CustomerProfileRepo = segmentation.CustomerProfileRepo
type IngestRunRepo = segmentation.IngestRunRepo

type Repos struct {
	Models              ModelRepo
	AccountModels       AccountModelRepo
	Segments            SegmentRepo
	Markups             MarkupRepo
	ActiveAccountModels ActiveAccountModelRepo
	CustomerProfiles    CustomerProfileRepo
	IngestRuns          IngestRunRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Models:              segmentation.NewModelRepo(db, log),
		AccountModels:       segmentation.NewAccountModelRepo(db, log),
		Segments:            segmentation.NewSegmentRepo(db, log),
		Markups:             segmentation.NewMarkupRepo(db, log),
		ActiveAccountModels: segmentation.NewActiveAccountModelRepo(db, log),
		CustomerProfiles:    segmentation.NewCustomerProfileRepo(db, log),
		IngestRuns:          segmentation.NewIngestRunRepo(db, log),
	}
}
