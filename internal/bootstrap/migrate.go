package bootstrap

import (
	"anoa.com/pointboard/internal/entity"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&entity.PointRecord{},
		&entity.UserPoints{},
	)
}
