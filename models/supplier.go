package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/florist_backend/config"
	"github.com/mmdatafocus/florist_backend/utils"
	"gorm.io/gorm"
)

type Supplier struct {
	ID            uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	Name          string    `gorm:"size:255;not null;index" json:"name"`
	ContactPerson string    `gorm:"size:255" json:"contact_person"`
	Email         string    `gorm:"size:255" json:"email"`
	Phone         string    `gorm:"size:50" json:"phone"`
	Address       string    `gorm:"type:text" json:"address"`
	Notes         string    `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplier struct {
	Name          string `json:"name" binding:"required,max=255"`
	ContactPerson string `json:"contact_person" binding:"max=255"`
	Email         string `json:"email" binding:"max=255"`
	Phone         string `json:"phone" binding:"max=50"`
	Address       string `json:"address"`
	Notes         string `json:"notes"`
}

func (input *NewSupplier) validate() error {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return validationError("name", "is required")
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		return validationError("email", "is not a valid email address")
	}
	return nil
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	db := config.GetDB()
	if db == nil {
		return nil, &StorageFault{Op: "create supplier", Err: ErrDatabaseNotReady}
	}

	supplier := Supplier{
		ID:            uuid.New(),
		Name:          input.Name,
		ContactPerson: input.ContactPerson,
		Email:         input.Email,
		Phone:         input.Phone,
		Address:       input.Address,
		Notes:         input.Notes,
	}
	if err := db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, &StorageFault{Op: "create supplier", Err: err}
	}
	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, id uuid.UUID, input *NewSupplier) (*Supplier, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	existing, err := GetSupplier(ctx, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Model(existing).Updates(map[string]interface{}{
		"name":           input.Name,
		"contact_person": input.ContactPerson,
		"email":          input.Email,
		"phone":          input.Phone,
		"address":        input.Address,
		"notes":          input.Notes,
	}).Error
	if err != nil {
		return nil, &StorageFault{Op: "update supplier", Err: err}
	}
	return GetSupplier(ctx, id)
}

func GetSupplier(ctx context.Context, id uuid.UUID) (*Supplier, error) {
	db := config.GetDB()
	if db == nil {
		return nil, &StorageFault{Op: "get supplier", Err: ErrDatabaseNotReady}
	}
	var supplier Supplier
	if err := db.WithContext(ctx).Where("id = ?", id).Take(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "supplier", Id: id.String()}
		}
		return nil, &StorageFault{Op: "get supplier", Err: err}
	}
	return &supplier, nil
}

func GetSuppliers(ctx context.Context, name *string) ([]*Supplier, error) {
	db := config.GetDB()
	if db == nil {
		return nil, &StorageFault{Op: "list suppliers", Err: ErrDatabaseNotReady}
	}
	query := db.WithContext(ctx).Model(&Supplier{})
	if name != nil && *name != "" {
		query = query.Where("name LIKE ?", "%"+*name+"%")
	}
	suppliers := []*Supplier{}
	if err := query.Order("name").Find(&suppliers).Error; err != nil {
		return nil, &StorageFault{Op: "list suppliers", Err: err}
	}
	return suppliers, nil
}
