package models

import (
	"time"

	"github.com/google/uuid"
)

// StockMovement is one append-only ledger entry. Quantity is signed: negative leaves stock, positive enters it.
type StockMovement struct {
	ID           uuid.UUID    `gorm:"type:char(36);primary_key" json:"id"`
	FlowerId     uuid.UUID    `gorm:"type:char(36);not null;index" json:"flower_id"`
	MovementType MovementType `gorm:"type:enum('purchase','sale','adjustment','return');not null;index" json:"movement_type"`
	Quantity     int          `gorm:"not null" json:"quantity"`
	ReferenceId  *uuid.UUID   `gorm:"type:char(36);index" json:"reference_id"`
	Notes        string       `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
}

// NewStockMovement is a stock change that does not come from a sale.
type NewStockMovement struct {
	FlowerId     uuid.UUID    `json:"flower_id"`
	MovementType MovementType `json:"movement_type"`
	Quantity     int          `json:"quantity"`
	ReferenceId  *uuid.UUID   `json:"reference_id"`
	Notes        string       `json:"notes"`
}

// FlowerLedgerTotal is one flower's stock next to the sum of its ledger.
type FlowerLedgerTotal struct {
	FlowerId      uuid.UUID `json:"flower_id"`
	Name          string    `json:"name"`
	OpeningStock  int       `json:"opening_stock"`
	CurrentStock  int       `json:"current_stock"`
	MovementTotal int       `json:"movement_total"`
}

// Expected is the stock the ledger says the flower should hold.
func (t *FlowerLedgerTotal) Expected() int {
	return t.OpeningStock + t.MovementTotal
}

func (t *FlowerLedgerTotal) Consistent() bool {
	return t.Expected() == t.CurrentStock
}

type LedgerMismatch struct {
	FlowerId     uuid.UUID `json:"flower_id"`
	Name         string    `json:"name"`
	CurrentStock int       `json:"current_stock"`
	Expected     int       `json:"expected"`
	Difference   int       `json:"difference"`
}
