// Package memstore is an in-process models.Store. Transactions are serialized and
// rolled back from a snapshot, which gives the same all-or-nothing behaviour as MySQL.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mmdatafocus/florist_backend/models"
	"github.com/mmdatafocus/florist_backend/utils"
)

type Store struct {
	mu        sync.Mutex
	flowers   map[uuid.UUID]models.Flower
	sales     []models.Sale
	items     []models.SaleItem
	movements []models.StockMovement
}

var _ models.Store = (*Store)(nil)

func New() *Store {
	return &Store{flowers: make(map[uuid.UUID]models.Flower)}
}

// AddFlower seeds the catalog. A nil id is assigned and opening stock defaults to current stock.
func (s *Store) AddFlower(f models.Flower) models.Flower {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	if f.OpeningStock == 0 {
		f.OpeningStock = f.CurrentStock
	}
	if f.Unit == "" {
		f.Unit = models.FlowerUnitStem
	}
	s.flowers[f.ID] = f
	return f
}

func (s *Store) Flower(id uuid.UUID) (models.Flower, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.flowers[id]
	return f, ok
}

// Counts reports how many sales, sale items and movements are stored.
func (s *Store) Counts() (sales, items, movements int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sales), len(s.items), len(s.movements)
}

type snapshot struct {
	flowers   map[uuid.UUID]models.Flower
	sales     int
	items     int
	movements int
}

func (s *Store) snapshot() snapshot {
	flowers := make(map[uuid.UUID]models.Flower, len(s.flowers))
	for id, f := range s.flowers {
		flowers[id] = f
	}
	return snapshot{flowers: flowers, sales: len(s.sales), items: len(s.items), movements: len(s.movements)}
}

func (s *Store) restore(snap snapshot) {
	s.flowers = snap.flowers
	s.sales = s.sales[:snap.sales]
	s.items = s.items[:snap.items]
	s.movements = s.movements[:snap.movements]
}

func (s *Store) Transaction(ctx context.Context, fn func(tx models.StoreTx) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	defer func() {
		if r := recover(); r != nil {
			s.restore(snap)
			panic(r)
		}
	}()
	if err = fn(&storeTx{s: s}); err != nil {
		s.restore(snap)
	}
	return err
}

func (s *Store) RecentSales(ctx context.Context, limit int) ([]*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := make([]int, len(s.sales))
	for i := range order {
		order[i] = i
	}
	// newest first; later inserts win ties
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := s.sales[order[a]], s.sales[order[b]]
		if !sa.SaleDate.Equal(sb.SaleDate) {
			return sa.SaleDate.After(sb.SaleDate)
		}
		return order[a] > order[b]
	})
	if limit > 0 && len(order) > limit {
		order = order[:limit]
	}
	sales := make([]*models.Sale, 0, len(order))
	for _, i := range order {
		sales = append(sales, s.assemble(s.sales[i]))
	}
	return sales, nil
}

func (s *Store) FindSaleByIdempotencyKey(ctx context.Context, key string) (*models.Sale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sale := range s.sales {
		if sale.IdempotencyKey != nil && *sale.IdempotencyKey == key {
			return s.assemble(sale), nil
		}
	}
	return nil, nil
}

func (s *Store) StockMovements(ctx context.Context, flowerId uuid.UUID, limit int) ([]*models.StockMovement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.StockMovement
	for i := len(s.movements) - 1; i >= 0; i-- {
		if s.movements[i].FlowerId != flowerId {
			continue
		}
		m := s.movements[i]
		out = append(out, &m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) LedgerTotals(ctx context.Context) ([]*models.FlowerLedgerTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := make(map[uuid.UUID]int)
	for _, m := range s.movements {
		sums[m.FlowerId] += m.Quantity
	}
	totals := make([]*models.FlowerLedgerTotal, 0, len(s.flowers))
	for _, f := range s.flowers {
		totals = append(totals, &models.FlowerLedgerTotal{
			FlowerId:      f.ID,
			Name:          f.Name,
			OpeningStock:  f.OpeningStock,
			CurrentStock:  f.CurrentStock,
			MovementTotal: sums[f.ID],
		})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Name < totals[j].Name })
	return totals, nil
}

// SetStock overwrites a flower's stock without a ledger entry. Tests use it to break the ledger on purpose.
func (s *Store) SetStock(id uuid.UUID, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flowers[id]; ok {
		f.CurrentStock = stock
		s.flowers[id] = f
	}
}

func (s *Store) assemble(header models.Sale) *models.Sale {
	sale := header
	sale.Items = []models.SaleItem{}
	for _, item := range s.items {
		if item.SaleId != sale.ID {
			continue
		}
		item.FlowerName = s.flowers[item.FlowerId].Name
		sale.Items = append(sale.Items, item)
	}
	sort.SliceStable(sale.Items, func(i, j int) bool { return sale.Items[i].LineNo < sale.Items[j].LineNo })
	return &sale
}

type storeTx struct {
	s *Store
}

func (t *storeTx) GetFlower(id uuid.UUID) (*models.Flower, error) {
	f, ok := t.s.flowers[id]
	if !ok {
		return nil, utils.ErrorRecordNotFound
	}
	return &f, nil
}

func (t *storeTx) DecrementStockIfAvailable(id uuid.UUID, quantity int) (bool, error) {
	f, ok := t.s.flowers[id]
	if !ok || f.CurrentStock < quantity {
		return false, nil
	}
	f.CurrentStock -= quantity
	t.s.flowers[id] = f
	return true, nil
}

func (t *storeTx) IncrementStock(id uuid.UUID, quantity int) error {
	f, ok := t.s.flowers[id]
	if !ok {
		return utils.ErrorRecordNotFound
	}
	f.CurrentStock += quantity
	t.s.flowers[id] = f
	return nil
}

func (t *storeTx) CreateSale(sale *models.Sale) error {
	if sale.IdempotencyKey != nil {
		for _, existing := range t.s.sales {
			if existing.IdempotencyKey != nil && *existing.IdempotencyKey == *sale.IdempotencyKey {
				return models.ErrDuplicateIdempotencyKey
			}
		}
	}
	header := *sale
	header.Items = nil
	t.s.sales = append(t.s.sales, header)
	return nil
}

func (t *storeTx) CreateSaleItem(item *models.SaleItem) error {
	stored := *item
	stored.FlowerName = ""
	t.s.items = append(t.s.items, stored)
	return nil
}

func (t *storeTx) AppendMovement(movement *models.StockMovement) error {
	t.s.movements = append(t.s.movements, *movement)
	return nil
}
