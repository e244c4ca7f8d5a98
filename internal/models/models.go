package models

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SetupModels runs the schema migrations for every persisted model
func SetupModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&User{},
		&WorkOrder{},
		&DeliveryNote{},
	)
	if err != nil {
		return errors.Wrap(err, "failed to run auto migrations")
	}
	return nil
}
