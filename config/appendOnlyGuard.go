package config

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrAppendOnly is returned when a statement tries to rewrite a committed sale or ledger row.
var ErrAppendOnly = errors.New("table is append-only")

// appendOnlyTables are never updated or deleted through gorm.
// Raw SQL is not covered.
var appendOnlyTables = map[string]bool{
	"sales":           true,
	"sale_items":      true,
	"stock_movements": true,
}

// AppendOnlyGuardPlugin rejects UPDATE and DELETE statements on sale and ledger tables.
type AppendOnlyGuardPlugin struct{}

func NewAppendOnlyGuardPlugin() *AppendOnlyGuardPlugin { return &AppendOnlyGuardPlugin{} }

func (p *AppendOnlyGuardPlugin) Name() string { return "append_only_guard" }

func (p *AppendOnlyGuardPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Update().Before("gorm:update").Register("append_only_guard:update", appendOnlyGuardCallback); err != nil {
		return err
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("append_only_guard:delete", appendOnlyGuardCallback); err != nil {
		return err
	}
	return nil
}

func appendOnlyGuardCallback(db *gorm.DB) {
	if db == nil || db.Statement == nil {
		return
	}
	table := db.Statement.Table
	if table == "" && db.Statement.Schema != nil {
		table = db.Statement.Schema.Table
	}
	if appendOnlyTables[table] {
		_ = db.AddError(fmt.Errorf("%w: %s", ErrAppendOnly, table))
	}
}
