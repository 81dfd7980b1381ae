package models

import (
	"github.com/mmdatafocus/florist_backend/config"
)

// MigrateTable creates or updates every table the service owns.
func MigrateTable() error {
	db := config.GetDB()
	if db == nil {
		return ErrDatabaseNotReady
	}
	return db.AutoMigrate(
		&Supplier{},
		&Flower{},
		&Sale{},
		&SaleItem{},
		&StockMovement{},
	)
}
