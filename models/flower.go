package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/florist_backend/config"
	"github.com/mmdatafocus/florist_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultReorderLevel = 10

var ErrDatabaseNotReady = errors.New("database not connected")

type Flower struct {
	ID           uuid.UUID           `gorm:"type:char(36);primary_key" json:"id"`
	Name         string              `gorm:"size:255;not null;index" json:"name"`
	Variety      string              `gorm:"size:255" json:"variety"`
	Color        string              `gorm:"size:100" json:"color"`
	SupplierId   *uuid.UUID          `gorm:"type:char(36);index" json:"supplier_id"`
	CurrentStock int                 `gorm:"not null" json:"current_stock"`
	OpeningStock int                 `gorm:"not null" json:"opening_stock"`
	Unit         FlowerUnit          `gorm:"type:enum('stem','bunch','bouquet');not null" json:"unit"`
	CostPrice    decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"cost_price"`
	SellingPrice decimal.NullDecimal `gorm:"type:decimal(20,4)" json:"selling_price"`
	ReorderLevel int                 `gorm:"not null" json:"reorder_level"`
	ImageUrl     string              `gorm:"size:500" json:"image_url"`
	Notes        string              `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time           `gorm:"autoUpdateTime" json:"updated_at"`

	Supplier *Supplier `gorm:"-" json:"supplier,omitempty"`
}

func (f *Flower) IsLowStock() bool {
	return f.CurrentStock <= f.ReorderLevel
}

type NewFlower struct {
	Name         string              `json:"name" binding:"required,max=255"`
	Variety      string              `json:"variety" binding:"max=255"`
	Color        string              `json:"color" binding:"max=100"`
	SupplierId   *uuid.UUID          `json:"supplier_id"`
	CurrentStock *int                `json:"current_stock" binding:"omitempty,gte=0"`
	Unit         FlowerUnit          `json:"unit"`
	CostPrice    decimal.NullDecimal `json:"cost_price" binding:"omitempty,gte=0"`
	SellingPrice decimal.NullDecimal `json:"selling_price" binding:"omitempty,gte=0"`
	ReorderLevel *int                `json:"reorder_level" binding:"omitempty,gte=0"`
	ImageUrl     string              `json:"image_url" binding:"max=500"`
	Notes        string              `json:"notes"`
}

func (input *NewFlower) validate(ctx context.Context, db *gorm.DB) error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return validationError("name", "is required")
	}
	if input.Unit == "" {
		input.Unit = FlowerUnitStem
	}
	input.Unit = normalizeEnum(input.Unit)
	if !input.Unit.IsValid() {
		return validationError("unit", "must be one of stem, bunch, bouquet")
	}
	if input.CostPrice.Valid && input.CostPrice.Decimal.IsNegative() {
		return validationError("cost_price", "must not be negative")
	}
	if input.SellingPrice.Valid && input.SellingPrice.Decimal.IsNegative() {
		return validationError("selling_price", "must not be negative")
	}
	if input.ReorderLevel != nil && *input.ReorderLevel < 0 {
		return validationError("reorder_level", "must not be negative")
	}
	if input.SupplierId != nil {
		var count int64
		if err := db.WithContext(ctx).Model(&Supplier{}).Where("id = ?", *input.SupplierId).Count(&count).Error; err != nil {
			return &StorageFault{Op: "validate flower supplier", Err: err}
		}
		if count == 0 {
			return &NotFoundError{Resource: "supplier", Id: input.SupplierId.String()}
		}
	}
	return nil
}

// CreateFlower adds a flower to the catalog. Its starting stock becomes the ledger baseline.
func CreateFlower(ctx context.Context, input *NewFlower) (*Flower, error) {
	db := config.GetDB()
	if db == nil {
		return nil, &StorageFault{Op: "create flower", Err: ErrDatabaseNotReady}
	}
	if err := input.validate(ctx, db); err != nil {
		return nil, err
	}
	stock := 0
	if input.CurrentStock != nil {
		if *input.CurrentStock < 0 {
			return nil, validationError("current_stock", "must not be negative")
		}
		stock = *input.CurrentStock
	}

	flower := Flower{
		ID:           uuid.New(),
		Name:         input.Name,
		Variety:      input.Variety,
		Color:        input.Color,
		SupplierId:   input.SupplierId,
		CurrentStock: stock,
		OpeningStock: stock,
		Unit:         input.Unit,
		CostPrice:    input.CostPrice,
		SellingPrice: input.SellingPrice,
		ReorderLevel: utils.DereferencePtr(input.ReorderLevel, defaultReorderLevel),
		ImageUrl:     input.ImageUrl,
		Notes:        input.Notes,
	}
	if err := db.WithContext(ctx).Create(&flower).Error; err != nil {
		return nil, &StorageFault{Op: "create flower", Err: err}
	}
	return &flower, nil
}

// UpdateFlower edits catalog fields. Stock only moves through the ledger, so a differing current_stock is rejected.
func UpdateFlower(ctx context.Context, id uuid.UUID, input *NewFlower) (*Flower, error) {
	db := config.GetDB()
	if db == nil {
		return nil, &StorageFault{Op: "update flower", Err: ErrDatabaseNotReady}
	}
	existing, err := GetFlower(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.CurrentStock != nil && *input.CurrentStock != existing.CurrentStock {
		return nil, validationError("current_stock", "changes must be recorded as stock movements")
	}
	if err := input.validate(ctx, db); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"name":          input.Name,
		"variety":       input.Variety,
		"color":         input.Color,
		"supplier_id":   input.SupplierId,
		"unit":          input.Unit,
		"cost_price":    input.CostPrice,
		"selling_price": input.SellingPrice,
		"reorder_level": utils.DereferencePtr(input.ReorderLevel, existing.ReorderLevel),
		"image_url":     input.ImageUrl,
		"notes":         input.Notes,
	}
	if err := db.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
		return nil, &StorageFault{Op: "update flower", Err: err}
	}
	return GetFlower(ctx, id)
}

func GetFlower(ctx context.Context, id uuid.UUID) (*Flower, error) {
	db := config.GetDB()
	if db == nil {
		return nil, &StorageFault{Op: "get flower", Err: ErrDatabaseNotReady}
	}
	var flower Flower
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&flower).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "flower", Id: id.String()}
		}
		return nil, &StorageFault{Op: "get flower", Err: err}
	}
	return &flower, nil
}

// GetFlowers lists the catalog by name. lowStockOnly keeps flowers at or below their reorder level.
func GetFlowers(ctx context.Context, lowStockOnly bool) ([]*Flower, error) {
	db := config.GetDB()
	if db == nil {
		return nil, &StorageFault{Op: "list flowers", Err: ErrDatabaseNotReady}
	}
	query := db.WithContext(ctx).Model(&Flower{})
	if lowStockOnly {
		query = query.Where("current_stock <= reorder_level")
	}
	flowers := []*Flower{}
	if err := query.Order("name").Find(&flowers).Error; err != nil {
		return nil, &StorageFault{Op: "list flowers", Err: err}
	}
	return flowers, nil
}
