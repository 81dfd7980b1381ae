package models

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence boundary of the sale and ledger services.
// Everything done through one StoreTx commits together or not at all.
type Store interface {
	// Transaction runs fn in a single unit of work. A nil return commits; any error or panic rolls back.
	Transaction(ctx context.Context, fn func(tx StoreTx) error) error

	RecentSales(ctx context.Context, limit int) ([]*Sale, error)
	// FindSaleByIdempotencyKey returns nil, nil when no sale carries the key.
	FindSaleByIdempotencyKey(ctx context.Context, key string) (*Sale, error)
	StockMovements(ctx context.Context, flowerId uuid.UUID, limit int) ([]*StockMovement, error)
	LedgerTotals(ctx context.Context) ([]*FlowerLedgerTotal, error)
}

type StoreTx interface {
	// GetFlower reads the latest committed row and locks it until the transaction ends.
	// It returns utils.ErrorRecordNotFound for an unknown id.
	GetFlower(id uuid.UUID) (*Flower, error)
	// DecrementStockIfAvailable subtracts quantity only if that leaves stock >= 0.
	// It reports false, nil when stock is short. Check and write are one atomic step.
	DecrementStockIfAvailable(id uuid.UUID, quantity int) (bool, error)
	// IncrementStock returns utils.ErrorRecordNotFound for an unknown id.
	IncrementStock(id uuid.UUID, quantity int) error
	// CreateSale writes the sale header only. A reused idempotency key yields ErrDuplicateIdempotencyKey.
	CreateSale(sale *Sale) error
	CreateSaleItem(item *SaleItem) error
	AppendMovement(movement *StockMovement) error
}
