package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/florist_backend/utils"
	"github.com/shopspring/decimal"
)

// money columns are decimal(20,4)
const priceScale = 4

const (
	maxCustomerNameLength = 255
	maxIdempotencyKeyLen  = 100
)

// Sale is immutable once committed.
type Sale struct {
	ID               uuid.UUID       `gorm:"type:char(36);primary_key" json:"id"`
	SaleDate         time.Time       `gorm:"not null;index" json:"sale_date"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	CustomerName     string          `gorm:"size:255" json:"customer_name"`
	CustomerPhone    string          `gorm:"size:32" json:"customer_phone"`
	PaymentMethod    PaymentMethod   `gorm:"type:enum('cash','card','mobile','other');not null" json:"payment_method"`
	Notes            string          `gorm:"type:text" json:"notes"`
	RecordedByUserId *int            `json:"recorded_by_user_id,omitempty"`
	IdempotencyKey   *string         `gorm:"size:100;uniqueIndex" json:"-"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`

	Items []SaleItem `gorm:"foreignKey:SaleId" json:"items"`
}

// ShortReference is the prefix used to mention a sale in ledger notes.
func (s *Sale) ShortReference() string {
	return "Sale #" + s.ID.String()[:8]
}

type SaleItem struct {
	ID        uuid.UUID       `gorm:"type:char(36);primary_key" json:"id"`
	SaleId    uuid.UUID       `gorm:"type:char(36);not null;index" json:"sale_id"`
	LineNo    int             `gorm:"not null" json:"line_no"`
	FlowerId  uuid.UUID       `gorm:"type:char(36);not null;index" json:"flower_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"subtotal"`

	FlowerName string `gorm:"-" json:"flower_name"`
}

type NewSale struct {
	Items         []NewSaleItem `json:"items"`
	CustomerName  string        `json:"customer_name"`
	CustomerPhone string        `json:"customer_phone"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Notes         string        `json:"notes"`
	// TotalAmount is accepted for compatibility but never trusted; the total is always recomputed.
	TotalAmount decimal.NullDecimal `json:"total_amount"`

	IdempotencyKey string `json:"-"`
}

type NewSaleItem struct {
	FlowerId uuid.UUID `json:"flower_id"`
	Quantity int       `json:"quantity"`
	// UnitPrice falls back to the flower's selling price when omitted.
	UnitPrice decimal.NullDecimal `json:"unit_price"`
}

// validate checks everything that can be decided without the catalog and normalizes the input in place.
func (input *NewSale) validate(phoneRegion string) error {
	if len(input.Items) == 0 {
		return validationError("items", "at least one item is required")
	}
	for i, item := range input.Items {
		field := describeLine(i)
		if item.FlowerId == uuid.Nil {
			return validationError(field+".flower_id", "is required")
		}
		if item.Quantity <= 0 {
			return validationError(field+".quantity", "must be greater than zero, got %d", item.Quantity)
		}
		if item.UnitPrice.Valid {
			if err := checkUnitPrice(field, item.UnitPrice.Decimal); err != nil {
				return err
			}
		}
	}

	if input.PaymentMethod == "" {
		input.PaymentMethod = PaymentMethodCash
	}
	input.PaymentMethod = normalizeEnum(input.PaymentMethod)
	if !input.PaymentMethod.IsValid() {
		return validationError("payment_method", "must be one of cash, card, mobile, other")
	}

	input.CustomerName = strings.TrimSpace(input.CustomerName)
	if len(input.CustomerName) > maxCustomerNameLength {
		return validationError("customer_name", "must be at most %d characters", maxCustomerNameLength)
	}
	if phone := strings.TrimSpace(input.CustomerPhone); phone != "" {
		normalized, err := utils.NormalizePhoneNumber(phone, phoneRegion)
		if err != nil {
			return validationError("customer_phone", "%v", err)
		}
		input.CustomerPhone = normalized
	} else {
		input.CustomerPhone = ""
	}
	if len(input.IdempotencyKey) > maxIdempotencyKeyLen {
		return validationError("idempotency_key", "must be at most %d characters", maxIdempotencyKeyLen)
	}
	return nil
}

func checkUnitPrice(field string, price decimal.Decimal) error {
	if price.IsNegative() {
		return validationError(field+".unit_price", "must not be negative")
	}
	if !price.Equal(price.Round(priceScale)) {
		return validationError(field+".unit_price", "must have at most %d decimal places", priceScale)
	}
	return nil
}

// lineSubtotal is quantity times unit price, exact.
func lineSubtotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

func (input *NewSale) requestedByFlower() map[uuid.UUID]int {
	requested := make(map[uuid.UUID]int, len(input.Items))
	for _, item := range input.Items {
		requested[item.FlowerId] += item.Quantity
	}
	return requested
}

func (input *NewSale) flowerIds() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.FlowerId)
	}
	ids = utils.UniqueSlice(ids)
	// same order as itemsInLockOrder
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

func describeLine(i int) string {
	return fmt.Sprintf("items[%d]", i)
}
