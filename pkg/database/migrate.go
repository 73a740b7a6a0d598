package database

import (
	"gorm.io/gorm"

	"go-paineltv/internal/model"
)

// Migrate creates or updates the schema for every model the engine touches.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Product{},
		&model.PriceHistory{},
		&model.ImportJob{},
		&model.ImportConflict{},
		&model.Department{},
		&model.DepartmentPanel{},
		&model.ProductPanelAssociation{},
	)
}
