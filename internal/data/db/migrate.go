package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/markupsync/internal/domain/segmentation"
)

// Models lists every table owned or read by the engine, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&types.Model{},
		&types.AccountModel{},
		&types.Segment{},
		&types.Markup{},
		&types.ActiveAccountModel{},
		&types.CustomerProfileCRM{},
		&types.CustomerProfileBehaviour{},
		&types.IngestRun{},
	}
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
