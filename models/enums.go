package models

import (
	"fmt"
	"strings"
)

type FlowerUnit string

const (
	FlowerUnitStem    FlowerUnit = "stem"
	FlowerUnitBunch   FlowerUnit = "bunch"
	FlowerUnitBouquet FlowerUnit = "bouquet"
)

func (u FlowerUnit) IsValid() bool {
	switch u {
	case FlowerUnitStem, FlowerUnitBunch, FlowerUnitBouquet:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodMobile PaymentMethod = "mobile"
	PaymentMethodOther  PaymentMethod = "other"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodMobile, PaymentMethodOther:
		return true
	}
	return false
}

type MovementType string

const (
	MovementTypePurchase   MovementType = "purchase"
	MovementTypeSale       MovementType = "sale"
	MovementTypeAdjustment MovementType = "adjustment"
	MovementTypeReturn     MovementType = "return"
)

func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypePurchase, MovementTypeSale, MovementTypeAdjustment, MovementTypeReturn:
		return true
	}
	return false
}

// checkQuantity enforces the sign each movement type carries.
// sale is always outgoing; purchase and return are always incoming; adjustment goes either way.
func (t MovementType) checkQuantity(quantity int) error {
	if quantity == 0 {
		return fmt.Errorf("movement quantity must not be zero")
	}
	switch t {
	case MovementTypeSale:
		if quantity > 0 {
			return fmt.Errorf("sale movement must be negative, got %d", quantity)
		}
	case MovementTypePurchase, MovementTypeReturn:
		if quantity < 0 {
			return fmt.Errorf("%s movement must be positive, got %d", t, quantity)
		}
	case MovementTypeAdjustment:
	default:
		return fmt.Errorf("invalid movement type %q", string(t))
	}
	return nil
}

func normalizeEnum[T ~string](v T) T {
	return T(strings.ToLower(strings.TrimSpace(string(v))))
}
